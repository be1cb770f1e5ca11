package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/response"
	"github.com/xxxsen/justnotes/internal/session"
	"github.com/xxxsen/justnotes/internal/state"
)

type WorkspaceHandler struct {
	sessions *session.Manager
}

func NewWorkspaceHandler(sessions *session.Manager) *WorkspaceHandler {
	return &WorkspaceHandler{sessions: sessions}
}

type workspaceResponse struct {
	Status string     `json:"status"`
	View   state.View `json:"view"`
}

// Get returns the current view. folderId and noteId select entities on
// load; they are not validated.
func (h *WorkspaceHandler) Get(c *gin.Context) {
	sess, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	folderID, hasFolder := c.GetQuery("folderId")
	noteID, hasNote := c.GetQuery("noteId")
	if hasFolder || hasNote {
		ctrl.Select(c.Request.Context(), optionalID(folderID), optionalID(noteID))
	}
	response.Success(c, workspaceResponse{Status: string(sess.Status()), View: ctrl.View()})
}

// Events streams the view as server-sent events until the client leaves
// or the session ends.
func (h *WorkspaceHandler) Events(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	updates, cancel := ctrl.Subscribe()
	defer cancel()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case view, ok := <-updates:
			if !ok {
				c.SSEvent("signed_out", gin.H{})
				return false
			}
			c.SSEvent("state", view)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type selectionRequest struct {
	FolderID *string `json:"folderId"`
	NoteID   *string `json:"noteId"`
}

func (h *WorkspaceHandler) Select(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	ctrl.Select(c.Request.Context(), req.FolderID, req.NoteID)
	response.Success(c, ctrl.View())
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *WorkspaceHandler) Search(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	ctrl.Search(c.Request.Context(), req.Query)
	response.Success(c, gin.H{"filteredNotes": state.FilteredNotes(ctrl.State())})
}

func (h *WorkspaceHandler) DismissError(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	ctrl.DismissError(c.Request.Context())
	response.OK(c)
}

func (h *WorkspaceHandler) Sync(c *gin.Context) {
	sess, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.sessions.Sync(c.Request.Context(), sess); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, workspaceResponse{Status: string(sess.Status()), View: ctrl.View()})
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Invite applies to the current selection.
func (h *WorkspaceHandler) Invite(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	res, err := ctrl.Invite(c.Request.Context(), req.Email)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
