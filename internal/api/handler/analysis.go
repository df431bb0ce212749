package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/citelens/internal/analysis"
	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/service"
)

// AnalysisHandler runs single analyses on request payloads.
// Texts without an embedding are embedded through the embedder.
type AnalysisHandler struct {
	embedder  service.Embedder
	citations *analysis.Citations
	cfg       config.AnalysisConfig
	chunking  config.ChunkingConfig
}

// NewAnalysisHandler creates a new analysis handler.
// Parameters:
//   - embedder: used for texts sent without vectors; may be nil.
//   - citations: citation detector with the configured rule table.
//   - cfg: default thresholds.
//   - chunking: default chunk options.
// Returns:
//   - *AnalysisHandler: initialized handler.
func NewAnalysisHandler(embedder service.Embedder, citations *analysis.Citations, cfg config.AnalysisConfig, chunking config.ChunkingConfig) *AnalysisHandler {
	if citations == nil {
		citations = analysis.NewCitations(nil)
	}
	return &AnalysisHandler{embedder: embedder, citations: citations, cfg: cfg, chunking: chunking}
}

// embedMissing fills the vectors of texts that came without one.
func (h *AnalysisHandler) embedMissing(ctx context.Context, texts []string, vectors [][]float32) error {
	var pending []int
	for i := range texts {
		if len(vectors[i]) == 0 {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if h.embedder == nil {
		return errNoEmbedder
	}
	batch := make([]string, len(pending))
	for j, i := range pending {
		batch[j] = texts[i]
	}
	records, err := h.embedder.EmbedBatch(ctx, batch, false)
	if err != nil {
		return err
	}
	for j, i := range pending {
		vectors[i] = records[j].Embedding
	}
	return nil
}

// NamedVector is a text with an optional precomputed embedding.
type NamedVector struct {
	Text      string    `json:"text" binding:"required"`
	Embedding []float32 `json:"embedding"`
}

func (h *AnalysisHandler) references(ctx context.Context, items []NamedVector) (analysis.ReferenceSet, error) {
	texts := make([]string, len(items))
	vectors := make([][]float32, len(items))
	for i, it := range items {
		texts[i] = it.Text
		vectors[i] = it.Embedding
	}
	if err := h.embedMissing(ctx, texts, vectors); err != nil {
		return nil, err
	}
	refs := make(analysis.ReferenceSet, len(items))
	for i := range items {
		refs[i] = analysis.Reference{Name: texts[i], Vector: vectors[i]}
	}
	return refs.Unique(), nil
}

// ClusterRequest is the body of POST /api/v1/analysis/cluster.
type ClusterRequest struct {
	Keywords          []NamedVector `json:"keywords" binding:"required,min=1,dive"`
	Method            string        `json:"method"`
	NumClusters       int           `json:"num_clusters"`
	DistanceThreshold float64       `json:"distance_threshold"`
	OutlierThreshold  float64       `json:"outlier_threshold"`
}

// Cluster handles POST /api/v1/analysis/cluster.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalysisHandler) Cluster(c *gin.Context) {
	var req ClusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	refs, err := h.references(ctx, req.Keywords)
	if err != nil {
		respondError(c, "Clustering", err)
		return
	}
	keywords := make([]domain.KeywordItem, len(refs))
	vectors := make([][]float32, len(refs))
	for i, r := range refs {
		keywords[i] = domain.KeywordItem{Keyword: r.Name, Embedding: r.Vector}
		vectors[i] = r.Vector
	}
	if err := analysis.CheckDimensions(vectors...); err != nil {
		respondError(c, "Clustering", err)
		return
	}

	method := req.Method
	if method == "" {
		method = h.cfg.ClusterMethod
	}
	distance := req.DistanceThreshold
	if distance <= 0 {
		distance = h.cfg.DistanceThreshold
	}
	clusters, err := analysis.Cluster(keywords, analysis.ClusterOptions{
		Method:            analysis.Method(method),
		NumClusters:       req.NumClusters,
		DistanceThreshold: distance,
	})
	if err != nil {
		respondError(c, "Clustering", err)
		return
	}

	outlierThreshold := req.OutlierThreshold
	if outlierThreshold <= 0 {
		outlierThreshold = h.cfg.OutlierThreshold
	}
	c.JSON(http.StatusOK, gin.H{
		"clusters": clusters,
		"outliers": analysis.FindOutliers(keywords, outlierThreshold),
	})
}

// CoverageRequest is the body of POST /api/v1/analysis/coverage.
type CoverageRequest struct {
	URL        string        `json:"url"`
	Content    NamedVector   `json:"content" binding:"required"`
	References []NamedVector `json:"references" binding:"required,min=1,dive"`
	Threshold  float64       `json:"threshold"`
}

// Coverage handles POST /api/v1/analysis/coverage.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalysisHandler) Coverage(c *gin.Context) {
	var req CoverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	refs, err := h.references(ctx, append([]NamedVector{req.Content}, req.References...))
	if err != nil {
		respondError(c, "Coverage", err)
		return
	}
	subject, refs := refs[0].Vector, refs[1:]
	vectors := [][]float32{subject}
	for _, r := range refs {
		vectors = append(vectors, r.Vector)
	}
	if err := analysis.CheckDimensions(vectors...); err != nil {
		respondError(c, "Coverage", err)
		return
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = h.cfg.CompletenessThreshold
	}
	c.JSON(http.StatusOK, analysis.ScoreCoverage(req.URL, subject, refs, threshold, analysis.CompletenessRecommender))
}

// ChunksRequest is the body of POST /api/v1/analysis/chunks.
type ChunksRequest struct {
	URL               string        `json:"url"`
	Content           string        `json:"content" binding:"required"`
	Queries           []NamedVector `json:"queries" binding:"required,min=1,dive"`
	TargetSize        int           `json:"target_size"`
	Overlap           *int          `json:"overlap"`
	RespectBoundaries *bool         `json:"respect_boundaries"`
}

// Chunks handles POST /api/v1/analysis/chunks. Every chunk is embedded.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalysisHandler) Chunks(c *gin.Context) {
	var req ChunksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	opts := analysis.ChunkOptions{
		TargetSize:        h.chunking.TargetSize,
		Overlap:           h.chunking.Overlap,
		RespectBoundaries: h.chunking.RespectBoundaries,
	}
	if req.TargetSize > 0 {
		opts.TargetSize = req.TargetSize
	}
	if req.Overlap != nil {
		opts.Overlap = *req.Overlap
	}
	if req.RespectBoundaries != nil {
		opts.RespectBoundaries = *req.RespectBoundaries
	}

	queries, err := h.references(ctx, req.Queries)
	if err != nil {
		respondError(c, "Chunk analysis", err)
		return
	}

	chunks := analysis.ChunkText(req.Content, opts)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	chunkVectors := make([][]float32, len(chunks))
	if err := h.embedMissing(ctx, texts, chunkVectors); err != nil {
		respondError(c, "Chunk analysis", err)
		return
	}
	vectors := append([][]float32{}, chunkVectors...)
	for _, q := range queries {
		vectors = append(vectors, q.Vector)
	}
	if err := analysis.CheckDimensions(vectors...); err != nil {
		respondError(c, "Chunk analysis", err)
		return
	}

	c.JSON(http.StatusOK, analysis.SimulateRetrieval(req.URL, chunks, chunkVectors, queries))
}

// CitationsRequest is the body of POST /api/v1/analysis/citations.
type CitationsRequest struct {
	URL     string  `json:"url"`
	Content string  `json:"content" binding:"required"`
	Target  float64 `json:"target"`
}

// Citations handles POST /api/v1/analysis/citations. No embeddings are needed.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalysisHandler) Citations(c *gin.Context) {
	var req CitationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	target := req.Target
	if target <= 0 {
		target = h.cfg.CitationTarget
	}
	c.JSON(http.StatusOK, gin.H{
		"result":       h.citations.Analyze(req.URL, req.Content),
		"improvements": h.citations.SuggestImprovements(req.Content, target),
	})
}
