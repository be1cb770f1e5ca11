package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/response"
)

type FolderHandler struct{}

func NewFolderHandler() *FolderHandler {
	return &FolderHandler{}
}

type folderRequest struct {
	Name string `json:"name"`
}

func (h *FolderHandler) Create(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	folder, err := ctrl.CreateFolder(c.Request.Context(), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) Delete(c *gin.Context) {
	_, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	if err := ctrl.DeleteFolder(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c)
}
