package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	ping              func(ctx context.Context) error
	embeddingsEnabled bool
}

// NewHealthHandler creates a new health handler.
// ping checks the cache database and may be nil.
func NewHealthHandler(ping func(ctx context.Context) error, embeddingsEnabled bool) *HealthHandler {
	return &HealthHandler{ping: ping, embeddingsEnabled: embeddingsEnabled}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":     "ok",
		"embeddings": h.embeddingsEnabled,
	}
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
