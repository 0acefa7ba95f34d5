package handler

import (
	"errors"
	"net/http"

	"filetree-service/internal/common"
	"filetree-service/pkg/logger"
	"filetree-service/pkg/multipart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

// Status maps an error returned by a service to an HTTP status code.
func Status(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, common.ErrStorageFailure),
		errors.Is(err, common.ErrRepositoryFailure):
		// these may wrap a lookup error from a dependency
		return http.StatusInternalServerError
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, multipart.ErrMalformedMultipart),
		errors.Is(err, multipart.ErrMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"error": msg} with the status of err. Server errors get
// a generic message; their cause only goes to the log.
func WriteError(c *gin.Context, err error) {
	status := Status(err)
	log := logger.GetLogger(c.Request.Context())

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": internalErrorMessage})
		return
	}
	log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(err)})
}

// BadRequest is for input problems found by the handler itself.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func publicMessage(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return "request body too large"
	case errors.Is(err, common.ErrInvalidCredentials):
		return common.ErrInvalidCredentials.Error()
	case errors.Is(err, common.ErrInvalidToken):
		return common.ErrInvalidToken.Error()
	case errors.Is(err, common.ErrSessionExpired):
		return common.ErrSessionExpired.Error()
	}
	return err.Error()
}
