package analysis

import (
	"context"
	"fmt"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/vecmath"
)

const (
	DefaultRetrievalThreshold    = 0.5
	DefaultRetrievalGapThreshold = 0.4
	DefaultSiteTopK              = 5

	chunkPreviewChars  = 150
	shortChunkWords    = 50
	longChunkWords     = 500
	lowRetrievalScore  = 0.3
	scoreSpreadLimit   = 0.15
	orphanQueryScore   = 0.4
	coverageSearchTopK = 10
	coverageTopResults = 5

	noChunksMessage     = "Content too short for chunking analysis"
	wellOptimizedChunks = "Chunk boundaries appear well-optimized"
)

// SimulateRetrieval matches every chunk against the query set. chunkVectors
// is aligned with chunks; extra entries on either side are ignored.
func SimulateRetrieval(url string, chunks []domain.Chunk, chunkVectors [][]float32, queries ReferenceSet) domain.RAGChunkResult {
	n := min(len(chunks), len(chunkVectors))
	if n == 0 {
		return domain.RAGChunkResult{
			URL:                 url,
			ChunkScores:         []domain.ChunkRetrievalScore{},
			BoundarySuggestions: []string{noChunksMessage},
		}
	}

	scores := make([]domain.ChunkRetrievalScore, n)
	best := make([]float64, n)
	for i := 0; i < n; i++ {
		cs := domain.ChunkRetrievalScore{
			ChunkIndex:     chunks[i].Index,
			ChunkPreview:   truncateWithEllipsis(chunks[i].Text, chunkPreviewChars),
			AllQueryScores: make(map[string]domain.Score, len(queries)),
			WordCount:      chunks[i].WordCount,
		}
		for j, s := range ScoreReferences(chunkVectors[i], queries) {
			cs.AllQueryScores[s.Name] = domain.Score(s.Score)
			if j == 0 || s.Score > float64(cs.BestScore) {
				cs.BestMatchingQuery = s.Name
				cs.BestScore = domain.Score(s.Score)
			}
		}
		scores[i] = cs
		best[i] = float64(cs.BestScore)
	}

	return domain.RAGChunkResult{
		URL:                 url,
		AvgRetrievalScore:   domain.Score(vecmath.Mean(best)),
		ChunkScores:         scores,
		BoundarySuggestions: BoundarySuggestions(scores),
	}
}

// AnalyzeChunks chunks a page and simulates retrieval against queries. With
// nil chunkVectors the page vector stands in for every chunk.
func AnalyzeChunks(item *domain.ContentItem, queries ReferenceSet, opts ChunkOptions, chunkVectors [][]float32) domain.RAGChunkResult {
	chunks := ChunkText(item.Content, opts)
	if chunkVectors == nil {
		chunkVectors = make([][]float32, len(chunks))
		for i := range chunkVectors {
			chunkVectors[i] = item.Embedding
		}
	}
	return SimulateRetrieval(item.URL, chunks, chunkVectors, queries)
}

// BoundarySuggestions reports chunk-size and focus problems. The result is
// never empty: without problems it holds the well-optimized message.
func BoundarySuggestions(scores []domain.ChunkRetrievalScore) []string {
	var short, long, low, orphan int
	best := make([]float64, len(scores))
	for i, cs := range scores {
		best[i] = float64(cs.BestScore)
		if cs.WordCount < shortChunkWords {
			short++
		}
		if cs.WordCount > longChunkWords {
			long++
		}
		if cs.BestScore < lowRetrievalScore {
			low++
		}
		isOrphan := true
		for _, s := range cs.AllQueryScores {
			if s >= orphanQueryScore {
				isOrphan = false
				break
			}
		}
		if isOrphan {
			orphan++
		}
	}

	var out []string
	if short > 0 {
		out = append(out, fmt.Sprintf("Merge %d short chunks (<50 words) with adjacent chunks", short))
	}
	if long > 0 {
		out = append(out, fmt.Sprintf("Split %d long chunks (>500 words) for better retrieval", long))
	}
	if low > 0 {
		out = append(out, fmt.Sprintf("%d chunks have low retrieval scores - consider restructuring content for better query alignment", low))
	}
	if len(best) > 1 && vecmath.StdDev(best) > scoreSpreadLimit {
		out = append(out, "High variance in chunk scores - some sections may need topic focus improvement")
	}
	if orphan > 0 {
		out = append(out, fmt.Sprintf("%d chunks don't match any common queries - consider if this content serves search intent", orphan))
	}
	if len(out) == 0 {
		out = append(out, wellOptimizedChunks)
	}
	return out
}

// SimulateSiteRetrieval ranks pages for one query vector.
func SimulateSiteRetrieval(items []domain.ContentItem, query []float32, topK int) []NamedScore {
	if topK <= 0 {
		topK = DefaultSiteTopK
	}
	return BestContentForTopic(items, query, topK)
}

// Retriever ranks pages for a query vector. The in-memory implementation is
// SimulateSiteRetrieval; a vector index can stand in for it.
type Retriever func(ctx context.Context, query []float32, topK int) ([]NamedScore, error)

// InMemoryRetriever returns a Retriever over items.
func InMemoryRetriever(items []domain.ContentItem) Retriever {
	return func(_ context.Context, query []float32, topK int) ([]NamedScore, error) {
		return SimulateSiteRetrieval(items, query, topK), nil
	}
}

type (
	QueryCoverage           = domain.QueryCoverage
	RetrievalSummary        = domain.RetrievalSummary
	RetrievalCoverageReport = domain.RetrievalCoverageReport
)

// RetrievalCoverage retrieves the top ten pages for every query and keeps those at or above threshold.
func RetrievalCoverage(ctx context.Context, retrieve Retriever, queries ReferenceSet, threshold float64) (RetrievalCoverageReport, error) {
	report := RetrievalCoverageReport{QueryCoverage: make(map[string]QueryCoverage, len(queries))}
	for _, q := range queries {
		results, err := retrieve(ctx, q.Vector, coverageSearchTopK)
		if err != nil {
			return RetrievalCoverageReport{}, fmt.Errorf("failed to retrieve for %q: %w", q.Name, err)
		}
		above := []NamedScore{}
		for _, r := range results {
			if r.Score >= threshold {
				above = append(above, r)
			}
		}
		qc := QueryCoverage{RetrievedCount: len(above), CoverageGap: len(above) == 0}
		qc.TopResults = above[:min(len(above), coverageTopResults)]
		report.QueryCoverage[q.Name] = qc
		if qc.RetrievedCount > 0 {
			report.Summary.QueriesWithCoverage++
		}
	}
	report.Summary.TotalQueries = len(queries)
	if len(queries) > 0 {
		report.Summary.CoverageRate = domain.Score(float64(report.Summary.QueriesWithCoverage) / float64(len(queries)))
	}
	return report, nil
}

// RetrievalGaps returns the queries whose best page scores below threshold, in query order.
func RetrievalGaps(ctx context.Context, retrieve Retriever, queries ReferenceSet, threshold float64) ([]string, error) {
	gaps := []string{}
	for _, q := range queries {
		results, err := retrieve(ctx, q.Vector, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve for %q: %w", q.Name, err)
		}
		if len(results) == 0 || results[0].Score < threshold {
			gaps = append(gaps, q.Name)
		}
	}
	return gaps, nil
}

type GapSuggestion = domain.GapSuggestion

// SuggestForRetrievalGaps turns retrieval gaps into content briefs.
func SuggestForRetrievalGaps(gaps []string) []GapSuggestion {
	out := make([]GapSuggestion, len(gaps))
	for i, q := range gaps {
		out[i] = GapSuggestion{
			Query:          q,
			SuggestionType: "new_content",
			Recommendation: fmt.Sprintf("Create or expand content specifically addressing: '%s'", q),
			TargetElements: []string{
				fmt.Sprintf("Include exact phrasing: '%s'", q),
				"Add structured definition or explanation",
				"Include related statistics or facts",
				"Reference authoritative sources",
			},
		}
	}
	return out
}
