package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/citelens/internal/api/handler"
	"github.com/timmy/citelens/internal/api/middleware"
	"github.com/timmy/citelens/internal/config"
)

// Handlers groups the handlers mounted by SetupRouter.
type Handlers struct {
	Health    *handler.HealthHandler
	Embedding *handler.EmbeddingHandler
	Cache     *handler.CacheHandler
	Analysis  *handler.AnalysisHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h *Handlers, serverCfg config.ServerConfig) *gin.Engine {
	switch serverCfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(serverCfg.CORS))

	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		// Embeddings
		v1.POST("/embeddings", h.Embedding.Embed)
		v1.POST("/similarity", h.Embedding.Similarity)

		// Usage
		v1.GET("/usage", h.Embedding.Usage)
		v1.POST("/usage/reset", h.Embedding.ResetUsage)

		// Cache
		v1.GET("/cache/stats", h.Cache.Stats)
		v1.DELETE("/cache", h.Cache.Clear)
		v1.POST("/cache/prune", h.Cache.Prune)

		// Analysis
		analysisGroup := v1.Group("/analysis")
		analysisGroup.POST("/cluster", h.Analysis.Cluster)
		analysisGroup.POST("/coverage", h.Analysis.Coverage)
		analysisGroup.POST("/chunks", h.Analysis.Chunks)
		analysisGroup.POST("/citations", h.Analysis.Citations)
	}

	return r
}
