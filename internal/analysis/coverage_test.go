package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/citelens/internal/domain"
)

// unitAt returns a 2-d unit vector whose cosine with (1, 0) is sim.
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestScoreCoverage_Partition(t *testing.T) {
	subject := []float32{1, 0}
	refs := ReferenceSet{
		{Name: "A", Vector: unitAt(0.8)},
		{Name: "B", Vector: unitAt(0.2)},
	}

	result := ScoreCoverage("https://example.com/a", subject, refs, 0.5, NearMissRecommender)

	assert.Equal(t, "https://example.com/a", result.URL)
	assert.Equal(t, []string{"A"}, result.Covered)
	assert.Equal(t, []string{"B"}, result.Missing)
	assert.InDelta(t, 0.5, float64(result.OverallScore), 1e-6)
	assert.InDelta(t, 0.8, float64(result.PerItemScore["A"]), 1e-6)
	assert.Equal(t, []string{"Add new sections addressing: B"}, result.Recommendations)
}

func TestScoreCoverage_EmptyReferenceSet(t *testing.T) {
	result := ScoreCoverage("u", []float32{1, 0}, nil, 0.5, NearMissRecommender)

	assert.Zero(t, result.OverallScore)
	assert.Empty(t, result.Covered)
	assert.Empty(t, result.Missing)
	assert.NotNil(t, result.Recommendations)
}

func TestScoreCoverage_EveryNameInExactlyOneList(t *testing.T) {
	subject := []float32{1, 0}
	var refs ReferenceSet
	for i, sim := range []float64{0.95, 0.6, 0.45, 0.3, 0.1, -0.4} {
		refs = append(refs, Reference{Name: string(rune('a' + i)), Vector: unitAt(sim)})
	}

	result := ScoreCoverage("u", subject, refs, 0.45, nil)

	seen := make(map[string]int)
	for _, n := range result.Covered {
		seen[n]++
	}
	for _, n := range result.Missing {
		seen[n]++
	}
	require.Len(t, seen, len(refs))
	for name, count := range seen {
		if count != 1 {
			t.Errorf("expected %s in exactly one list, got %d", name, count)
		}
	}
}

func TestScoreCoverage_RepeatedNameScoredOnce(t *testing.T) {
	refs := ReferenceSet{
		{Name: "A", Vector: unitAt(0.8)},
		{Name: "B", Vector: unitAt(0.2)},
		{Name: "A", Vector: unitAt(0.2)},
	}

	result := ScoreCoverage("u", []float32{1, 0}, refs, 0.5, NearMissRecommender)

	assert.Equal(t, []string{"A"}, result.Covered)
	assert.Equal(t, []string{"B"}, result.Missing)
	assert.Len(t, result.PerItemScore, 2)
	assert.InDelta(t, 0.8, float64(result.PerItemScore["A"]), 1e-6)
	assert.InDelta(t, 0.5, float64(result.OverallScore), 1e-6)
}

func TestReferenceSet_Unique(t *testing.T) {
	refs := ReferenceSet{
		{Name: "x", Category: "first"},
		{Name: "y", Category: "first"},
		{Name: "x", Category: "second"},
	}

	got := refs.Unique()

	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].Name)
	assert.Equal(t, "first", got[0].Category)
	assert.Equal(t, "y", got[1].Name)
}

func TestNearMissRecommender_Bands(t *testing.T) {
	subject := []float32{1, 0}
	refs := ReferenceSet{
		{Name: "close", Vector: unitAt(0.45)},
		{Name: "far", Vector: unitAt(0.1)},
		{Name: "between", Vector: unitAt(0.3)},
	}

	result := ScoreCoverage("u", subject, refs, 0.5, NearMissRecommender)

	assert.Equal(t, []string{
		"Expand content to better answer: close",
		"Add new sections addressing: far",
	}, result.Recommendations)
}

func TestAssessCompleteness(t *testing.T) {
	item := &domain.ContentItem{URL: "u", Embedding: []float32{1, 0}}
	topics := ReferenceSet{
		{Name: "low", Vector: unitAt(0.1)},
		{Name: "partial", Vector: unitAt(0.3)},
		{Name: "covered", Vector: unitAt(0.9)},
	}

	result := AssessCompleteness(item, topics, 0)

	assert.Equal(t, []string{"covered"}, result.Covered)
	assert.Equal(t, []string{"low", "partial"}, result.Missing)
	assert.Equal(t, []string{
		"Consider adding content about: partial, low",
		"Expand coverage of: partial",
	}, result.Recommendations)
}

func TestFindContentGaps(t *testing.T) {
	item := &domain.ContentItem{Embedding: []float32{1, 0}}
	topics := ReferenceSet{
		{Name: "b", Vector: unitAt(0.3)},
		{Name: "a", Vector: unitAt(0.1)},
		{Name: "c", Vector: unitAt(0.8)},
	}

	gaps := FindContentGaps(item, topics, DefaultGapThreshold)

	require.Len(t, gaps, 2)
	assert.Equal(t, "a", gaps[0].Name)
	assert.Equal(t, "b", gaps[1].Name)
}

func TestContentRedundancy(t *testing.T) {
	items := []domain.ContentItem{
		{URL: "a", Embedding: []float32{1, 0}},
		{URL: "b", Embedding: []float32{1, 0.01}},
		{URL: "c", Embedding: []float32{0, 1}},
	}

	pairs := ContentRedundancy(items, DefaultRedundancyThreshold)

	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].URLA)
	assert.Equal(t, "b", pairs[0].URLB)
}

func TestTopicDistribution(t *testing.T) {
	items := []domain.ContentItem{
		{URL: "a", Embedding: []float32{1, 0}},
		{URL: "b", Embedding: []float32{0, 1}},
	}
	topics := ReferenceSet{
		{Name: "x", Vector: []float32{1, 0}},
		{Name: "y", Vector: []float32{1, 1}},
		{Name: "z", Vector: []float32{-1, 0}},
	}

	got := TopicDistribution(items, topics, DefaultDistributionThreshold)

	assert.Equal(t, map[string]int{"x": 1, "y": 2, "z": 0}, got)
}

func TestSitewideGaps(t *testing.T) {
	subjects := [][]float32{{1, 0}, {0, 1}}
	refs := ReferenceSet{
		{Name: "covered", Category: "c1", Vector: []float32{1, 0}},
		{Name: "opposite", Category: "c1", Vector: []float32{-1, -1}},
		{Name: "also covered", Category: "c2", Vector: []float32{0, 1}},
	}

	gaps := SitewideGaps(subjects, refs, 0.5)

	assert.Equal(t, map[string][]string{"c1": {"opposite"}}, gaps)
}

func TestCheckDimensions(t *testing.T) {
	assert.NoError(t, CheckDimensions([]float32{1, 2}, nil, []float32{3, 4}))
	err := CheckDimensions([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
