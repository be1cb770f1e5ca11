package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/response"
)

type NoteHandler struct{}

func NewNoteHandler() *NoteHandler {
	return &NoteHandler{}
}

type noteRequest struct {
	FolderID *string `json:"folderId"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
}

func (h *NoteHandler) Create(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	note, err := ctrl.CreateNote(c.Request.Context(), req.FolderID, req.Title, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

func (h *NoteHandler) Update(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	note, err := ctrl.SaveNote(c.Request.Context(), c.Param("id"), req.Title, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

func (h *NoteHandler) Delete(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	if err := ctrl.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c)
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *NoteHandler) AddComment(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	comment, err := ctrl.AddComment(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comment)
}
