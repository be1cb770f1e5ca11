package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/controller"
	"github.com/xxxsen/justnotes/internal/middleware"
	"github.com/xxxsen/justnotes/internal/pkg/errcode"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/response"
	"github.com/xxxsen/justnotes/internal/session"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("email", middleware.GetEmail(c)),
		zap.Error(err),
	)
	code, msg := errorCode(err)
	response.Error(c, code, msg)
}

func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrWorkspaceFull):
		return errcode.ErrWorkspaceFull, err.Error()
	case errors.Is(err, appErr.ErrNotInvited):
		return errcode.ErrNotInvited, err.Error()
	case errors.Is(err, appErr.ErrAlreadyConnected):
		return errcode.ErrAlreadyConnected, err.Error()
	case errors.Is(err, appErr.ErrUnauthorized), errors.Is(err, appErr.ErrNotSignedIn):
		return errcode.ErrUnauthorized, "unauthorized"
	case errors.Is(err, appErr.ErrForbidden):
		return errcode.ErrForbidden, err.Error()
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, err.Error()
	case errors.Is(err, appErr.ErrConflict):
		return errcode.ErrConflict, "conflict"
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests)
	case errors.Is(err, appErr.ErrRemote), errors.Is(err, appErr.ErrMalformed):
		return errcode.ErrRemote, err.Error()
	default:
		return errcode.ErrInternal, "internal error"
	}
}

func currentSession(c *gin.Context) (*session.Session, *controller.Controller, bool) {
	sess := middleware.GetSession(c)
	if sess == nil || sess.Controller() == nil {
		handleError(c, appErr.ErrNotSignedIn)
		return nil, nil, false
	}
	return sess, sess.Controller(), true
}

func optionalID(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func requestBaseURL(c *gin.Context) string {
	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		if c.Request.TLS != nil {
			proto = "https"
		} else {
			proto = "http"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host
}
