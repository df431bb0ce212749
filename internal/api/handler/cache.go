package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/citelens/internal/domain"
)

// CacheAdmin is the maintenance side of the vector cache.
type CacheAdmin interface {
	Stats(ctx context.Context) (*domain.CacheStats, error)
	Clear(ctx context.Context, model string) (int64, error)
	Prune(ctx context.Context, days int) (int64, error)
}

// CacheHandler handles vector cache endpoints.
type CacheHandler struct {
	cache CacheAdmin
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache CacheAdmin) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// Stats handles GET /api/v1/cache/stats.
func (h *CacheHandler) Stats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		respondError(c, "Cache stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Clear handles DELETE /api/v1/cache. An empty model query clears every model.
func (h *CacheHandler) Clear(c *gin.Context) {
	deleted, err := h.cache.Clear(c.Request.Context(), c.Query("model"))
	if err != nil {
		respondError(c, "Cache clear", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
	})
}

// PruneRequest is the body of POST /api/v1/cache/prune.
type PruneRequest struct {
	Days int `json:"days" binding:"required,min=1"`
}

// Prune handles POST /api/v1/cache/prune.
func (h *CacheHandler) Prune(c *gin.Context) {
	var req PruneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	deleted, err := h.cache.Prune(c.Request.Context(), req.Days)
	if err != nil {
		respondError(c, "Cache prune", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
		"days":    req.Days,
	})
}
