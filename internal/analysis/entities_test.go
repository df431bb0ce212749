package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timmy/citelens/internal/domain"
)

func TestAnalyzeEntityCoverage(t *testing.T) {
	item := &domain.ContentItem{URL: "u", Embedding: []float32{1, 0}}
	taxonomy := ReferenceSet{
		{Name: "SAMHSA", Category: "organizations", Vector: unitAt(0.9)},
		{Name: "NIDA", Category: "organizations", Vector: unitAt(0.42)},
		{Name: "naltrexone", Category: "medications", Vector: unitAt(0.35)},
		{Name: "unrelated", Category: "medications", Vector: unitAt(0.1)},
	}

	result := AnalyzeEntityCoverage(item, taxonomy, 0)

	assert.Equal(t, []string{"SAMHSA"}, result.Covered)
	assert.Equal(t, []string{"NIDA", "naltrexone", "unrelated"}, result.Missing)
	assert.InDelta(t, 0.66, float64(result.CategoryCoverage["organizations"]), 1e-6)
	assert.InDelta(t, 0.225, float64(result.CategoryCoverage["medications"]), 1e-6)
	assert.InDelta(t, (0.9+0.42+0.35+0.1)/4, float64(result.OverallScore), 1e-6)
	assert.Equal(t, []string{
		"Consider mentioning NIDA (organizations)",
		"Consider mentioning naltrexone (medications)",
	}, result.Recommendations)
}

func TestSuggestMissingEntitiesPriority(t *testing.T) {
	item := &domain.ContentItem{Embedding: []float32{1, 0}}
	taxonomy := ReferenceSet{
		{Name: "medium", Category: "concepts", Vector: unitAt(0.32)},
		{Name: "high", Category: "concepts", Vector: unitAt(0.41)},
	}

	got := SuggestMissingEntities(item, taxonomy, DefaultEntityThreshold)

	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Entity != "high" || got[0].Priority != "high" {
		t.Errorf("expected high priority first, got %+v", got[0])
	}
	if got[1].Priority != "medium" {
		t.Errorf("expected medium priority, got %s", got[1].Priority)
	}
}

func TestEntityAuthority(t *testing.T) {
	items := []domain.ContentItem{{URL: "u", Embedding: []float32{1, 0}}}
	taxonomy := ReferenceSet{
		{Name: "a", Category: "weighted", Vector: []float32{1, 0}},
		{Name: "b", Category: "unweighted", Vector: []float32{1, 0}},
	}

	got := EntityAuthority(items, taxonomy, map[string]float64{"weighted": 2})

	assert.InDelta(t, 1.5, float64(got["u"]), 1e-6)
}

func TestEntityGapsSitewide(t *testing.T) {
	items := []domain.ContentItem{{URL: "u", Embedding: []float32{1, 0}}}
	taxonomy := ReferenceSet{
		{Name: "covered", Category: "concepts", Vector: []float32{1, 0}},
		{Name: "gap", Category: "conditions", Vector: []float32{0, 1}},
	}

	got := EntityGapsSitewide(items, taxonomy, 0)

	assert.Equal(t, map[string][]string{"conditions": {"gap"}}, got)
}
