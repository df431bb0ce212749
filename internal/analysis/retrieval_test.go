package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/citelens/internal/domain"
)

func TestSimulateRetrieval_NoChunks(t *testing.T) {
	result := SimulateRetrieval("u", nil, nil, ReferenceSet{{Name: "q", Vector: []float32{1}}})

	assert.Zero(t, result.AvgRetrievalScore)
	assert.Empty(t, result.ChunkScores)
	assert.Equal(t, []string{noChunksMessage}, result.BoundarySuggestions)
}

func TestSimulateRetrieval_BestQuery(t *testing.T) {
	chunks := []domain.Chunk{{Index: 0, Text: "chunk", WordCount: 1}}
	queries := ReferenceSet{
		{Name: "weak", Vector: unitAt(0.2)},
		{Name: "strong", Vector: unitAt(0.9)},
	}

	result := SimulateRetrieval("u", chunks, [][]float32{{1, 0}}, queries)

	require.Len(t, result.ChunkScores, 1)
	cs := result.ChunkScores[0]
	assert.Equal(t, "strong", cs.BestMatchingQuery)
	assert.InDelta(t, 0.9, float64(cs.BestScore), 1e-6)
	assert.Len(t, cs.AllQueryScores, 2)
	assert.InDelta(t, 0.9, float64(result.AvgRetrievalScore), 1e-6)
}

func TestAnalyzeChunks_PageVectorProxy(t *testing.T) {
	item := &domain.ContentItem{URL: "u", Embedding: []float32{1, 0}, Content: "first paragraph\n\nsecond paragraph"}

	result := AnalyzeChunks(item, ReferenceSet{{Name: "q", Vector: []float32{1, 0}}}, DefaultChunkOptions(), nil)

	require.Len(t, result.ChunkScores, 1)
	assert.InDelta(t, 1.0, float64(result.ChunkScores[0].BestScore), 1e-6)
}

func TestBoundarySuggestions(t *testing.T) {
	testCases := []struct {
		name     string
		scores   []domain.ChunkRetrievalScore
		expected []string
	}{
		{
			name: "well optimized",
			scores: []domain.ChunkRetrievalScore{
				{WordCount: 200, BestScore: 0.8, AllQueryScores: map[string]domain.Score{"q": 0.8}},
				{WordCount: 300, BestScore: 0.75, AllQueryScores: map[string]domain.Score{"q": 0.75}},
			},
			expected: []string{wellOptimizedChunks},
		},
		{
			name: "every problem",
			scores: []domain.ChunkRetrievalScore{
				{WordCount: 10, BestScore: 0.9, AllQueryScores: map[string]domain.Score{"q": 0.9}},
				{WordCount: 600, BestScore: 0.1, AllQueryScores: map[string]domain.Score{"q": 0.1}},
			},
			expected: []string{
				"Merge 1 short chunks (<50 words) with adjacent chunks",
				"Split 1 long chunks (>500 words) for better retrieval",
				"1 chunks have low retrieval scores - consider restructuring content for better query alignment",
				"High variance in chunk scores - some sections may need topic focus improvement",
				"1 chunks don't match any common queries - consider if this content serves search intent",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, BoundarySuggestions(tc.scores))
		})
	}
}

func siteFixture() ([]domain.ContentItem, ReferenceSet) {
	items := []domain.ContentItem{
		{URL: "a", Embedding: []float32{1, 0}},
		{URL: "b", Embedding: []float32{0, 1}},
	}
	queries := ReferenceSet{
		{Name: "covered", Vector: []float32{1, 0}},
		{Name: "uncovered", Vector: []float32{-1, 0}},
	}
	return items, queries
}

func TestRetrievalCoverage(t *testing.T) {
	items, queries := siteFixture()

	report, err := RetrievalCoverage(context.Background(), InMemoryRetriever(items), queries, DefaultRetrievalThreshold)
	require.NoError(t, err)

	assert.Equal(t, 1, report.QueryCoverage["covered"].RetrievedCount)
	assert.Equal(t, "a", report.QueryCoverage["covered"].TopResults[0].Name)
	assert.True(t, report.QueryCoverage["uncovered"].CoverageGap)
	assert.Equal(t, RetrievalSummary{TotalQueries: 2, QueriesWithCoverage: 1, CoverageRate: 0.5}, report.Summary)
}

func TestRetrievalGaps(t *testing.T) {
	items, queries := siteFixture()

	gaps, err := RetrievalGaps(context.Background(), InMemoryRetriever(items), queries, DefaultRetrievalGapThreshold)
	require.NoError(t, err)
	assert.Equal(t, []string{"uncovered"}, gaps)

	failing := func(context.Context, []float32, int) ([]NamedScore, error) { return nil, errors.New("index down") }
	_, err = RetrievalGaps(context.Background(), failing, queries, DefaultRetrievalGapThreshold)
	assert.Error(t, err)
}

func TestSuggestForRetrievalGaps(t *testing.T) {
	got := SuggestForRetrievalGaps([]string{"what is mat"})

	require.Len(t, got, 1)
	assert.Equal(t, "new_content", got[0].SuggestionType)
	assert.Equal(t, "Create or expand content specifically addressing: 'what is mat'", got[0].Recommendation)
	assert.Equal(t, "Include exact phrasing: 'what is mat'", got[0].TargetElements[0])
}
