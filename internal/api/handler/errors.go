package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/citelens/internal/analysis"
	"github.com/timmy/citelens/internal/logger"
)

var errNoEmbedder = errors.New("embedding provider is not configured")

// respondError writes err with 400 for caller mistakes and 500 otherwise.
func respondError(c *gin.Context, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, analysis.ErrDimensionMismatch),
		errors.Is(err, analysis.ErrUnknownMethod),
		errors.Is(err, analysis.ErrInvalidRule):
		status = http.StatusBadRequest
	case errors.Is(err, errNoEmbedder):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).WithError(err).Errorf("%s failed", action)
	}
	c.JSON(status, gin.H{
		"error": action + " failed: " + err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "Invalid request: " + err.Error(),
	})
}
