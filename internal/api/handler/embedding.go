package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/citelens/internal/analysis"
	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/service"
	"github.com/timmy/citelens/internal/vecmath"
)

// EmbeddingClient is the part of service.EmbeddingClient the API uses.
type EmbeddingClient interface {
	EmbedBatch(ctx context.Context, texts []string, skipCache bool) ([]*domain.EmbeddingRecord, error)
	Usage(ctx context.Context) (*service.UsageStats, error)
	ResetUsage()
}

// EmbeddingHandler handles embedding, similarity and usage endpoints.
type EmbeddingHandler struct {
	client EmbeddingClient
}

// NewEmbeddingHandler creates a new embedding handler.
// Parameters:
//   - client: acquisition client, or nil when no provider key is configured.
// Returns:
//   - *EmbeddingHandler: initialized handler.
func NewEmbeddingHandler(client EmbeddingClient) *EmbeddingHandler {
	return &EmbeddingHandler{client: client}
}

// EmbedRequest is the body of POST /api/v1/embeddings.
type EmbedRequest struct {
	Texts     []string `json:"texts" binding:"required,min=1,max=2048"`
	SkipCache bool     `json:"skip_cache"`
}

// Embed handles POST /api/v1/embeddings.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *EmbeddingHandler) Embed(c *gin.Context) {
	var req EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if h.client == nil {
		respondError(c, "Embedding", errNoEmbedder)
		return
	}

	records, err := h.client.EmbedBatch(c.Request.Context(), req.Texts, req.SkipCache)
	if err != nil {
		respondError(c, "Embedding", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"embeddings": records,
		"total":      len(records),
	})
}

// SimilarityRequest is the body of POST /api/v1/similarity: either a pair
// (A, B) or a query ranked against candidates.
type SimilarityRequest struct {
	A          []float32   `json:"a"`
	B          []float32   `json:"b"`
	Query      []float32   `json:"query"`
	Candidates [][]float32 `json:"candidates"`
	TopK       int         `json:"top_k"`
}

// Similarity handles POST /api/v1/similarity.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *EmbeddingHandler) Similarity(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if len(req.Query) > 0 {
		if err := analysis.CheckDimensions(append([][]float32{req.Query}, req.Candidates...)...); err != nil {
			respondError(c, "Similarity", err)
			return
		}
		topK := req.TopK
		if topK <= 0 {
			topK = len(req.Candidates)
		}
		c.JSON(http.StatusOK, gin.H{
			"matches": vecmath.MostSimilar(req.Query, req.Candidates, topK),
		})
		return
	}

	if len(req.A) == 0 || len(req.B) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Either a and b or query and candidates are required",
		})
		return
	}
	if err := analysis.CheckDimensions(req.A, req.B); err != nil {
		respondError(c, "Similarity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"similarity": domain.Score(vecmath.Cosine(req.A, req.B)),
	})
}

// Usage handles GET /api/v1/usage.
func (h *EmbeddingHandler) Usage(c *gin.Context) {
	if h.client == nil {
		respondError(c, "Usage", errNoEmbedder)
		return
	}
	usage, err := h.client.Usage(c.Request.Context())
	if err != nil {
		respondError(c, "Usage", err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// ResetUsage handles POST /api/v1/usage/reset.
func (h *EmbeddingHandler) ResetUsage(c *gin.Context) {
	if h.client == nil {
		respondError(c, "Usage reset", errNoEmbedder)
		return
	}
	h.client.ResetUsage()
	c.JSON(http.StatusOK, gin.H{
		"message": "Usage counters reset",
	})
}
