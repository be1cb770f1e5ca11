package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/justnotes/internal/pkg/response"
	"github.com/xxxsen/justnotes/internal/service"
)

type ExportHandler struct {
	export *service.ExportService
}

func NewExportHandler(export *service.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// Export archives the session's current state.
func (h *ExportHandler) Export(c *gin.Context) {
	sess, ctrl, ok := currentSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	res, err := h.export.Export(ctx, sess.Principal.Email, ctrl.State().Snapshot())
	if err != nil {
		handleError(c, err)
		return
	}
	if res.URL, err = h.export.URL(ctx, res.Key, requestBaseURL(c)); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
