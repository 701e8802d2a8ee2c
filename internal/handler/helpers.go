package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/wassup/internal/middleware"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

// statusOf maps an error kind to its HTTP status. ErrBadCredentials is
// an ErrUnauthorized, so it has to be checked first.
func statusOf(err error) int {
	switch {
	case appErr.Is(err, appErr.ErrBadCredentials):
		return http.StatusBadRequest
	case appErr.Is(err, appErr.ErrUnauthorized):
		return http.StatusUnauthorized
	case appErr.Is(err, appErr.ErrNotFound):
		return http.StatusNotFound
	case appErr.Is(err, appErr.ErrInvalid),
		appErr.Is(err, appErr.ErrConflict),
		appErr.Is(err, appErr.ErrExpired),
		appErr.Is(err, appErr.ErrUploadFailed):
		return http.StatusBadRequest
	case appErr.Is(err, appErr.ErrTooMany):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status := statusOf(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status == http.StatusInternalServerError {
		logger.Error("request failed")
		response.Error(c, status, "internal error")
		return
	}
	logger.Warn("request rejected")
	response.Error(c, status, appErr.Message(err, http.StatusText(status)))
}
