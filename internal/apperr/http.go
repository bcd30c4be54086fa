package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/domperidog/docshare/pkg/logger"
)

// Status maps an error to the HTTP status the API answers with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error body and aborts the gin chain.
// Infrastructure failures are logged and answered with a generic message.
func Respond(c *gin.Context, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		logger.With("path", c.FullPath(), "request_id", c.GetString("request_id")).Errorf("request failed: %v", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
