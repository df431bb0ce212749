package analysis

import (
	"fmt"
	"sort"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/vecmath"
)

const (
	DefaultEntityThreshold        = 0.45
	DefaultEntityGapThreshold     = 0.5
	entitySuggestionFloor         = 0.3
	entityHighPriorityFloor       = 0.4
	maxEntitySuggestionsPerResult = 5
)

// DefaultAuthorityWeights weight entity categories that signal topical authority.
var DefaultAuthorityWeights = map[string]float64{
	"organizations":        1.2,
	"treatment_modalities": 1.0,
	"medications":          1.1,
	"conditions":           0.9,
	"concepts":             1.0,
	"levels_of_care":       0.8,
}

// EntitySuggestion is an entity that is related to the page but not yet covered.
type EntitySuggestion struct {
	Entity         string       `json:"entity"`
	Category       string       `json:"category"`
	RelevanceScore domain.Score `json:"relevance_score"`
	Priority       string       `json:"priority"`
	Suggestion     string       `json:"suggestion"`
}

// AnalyzeEntityCoverage scores a page against an entity taxonomy. The overall
// score is the mean over all entities regardless of category.
func AnalyzeEntityCoverage(item *domain.ContentItem, taxonomy ReferenceSet, threshold float64) domain.EntityCoverageResult {
	if threshold <= 0 {
		threshold = DefaultEntityThreshold
	}
	scored := ScoreReferences(item.Embedding, taxonomy)
	result := domain.EntityCoverageResult{
		CoverageResult:   buildCoverage(item.URL, scored, threshold, nil),
		CategoryCoverage: categoryMeans(scored),
	}

	suggestions := suggestFromScored(scored, threshold)
	if len(suggestions) > maxEntitySuggestionsPerResult {
		suggestions = suggestions[:maxEntitySuggestionsPerResult]
	}
	for _, s := range suggestions {
		result.Recommendations = append(result.Recommendations, s.Suggestion)
	}
	return result
}

func categoryMeans(scored []ScoredReference) map[string]domain.Score {
	byCategory := make(map[string][]float64)
	for _, s := range scored {
		byCategory[s.Category] = append(byCategory[s.Category], s.Score)
	}
	out := make(map[string]domain.Score, len(byCategory))
	for cat, scores := range byCategory {
		out[cat] = domain.Score(vecmath.Mean(scores))
	}
	return out
}

// SuggestMissingEntities lists entities scoring in [0.3, threshold), most relevant first.
func SuggestMissingEntities(item *domain.ContentItem, taxonomy ReferenceSet, threshold float64) []EntitySuggestion {
	return suggestFromScored(ScoreReferences(item.Embedding, taxonomy), threshold)
}

func suggestFromScored(scored []ScoredReference, threshold float64) []EntitySuggestion {
	var out []EntitySuggestion
	for _, s := range scored {
		if s.Score < entitySuggestionFloor || s.Score >= threshold {
			continue
		}
		priority := "medium"
		if s.Score >= entityHighPriorityFloor {
			priority = "high"
		}
		out = append(out, EntitySuggestion{
			Entity:         s.Name,
			Category:       s.Category,
			RelevanceScore: domain.Score(s.Score),
			Priority:       priority,
			Suggestion:     fmt.Sprintf("Consider mentioning %s (%s)", s.Name, s.Category),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	return out
}

// CompareEntityCoverage returns url → category → mean similarity.
func CompareEntityCoverage(items []domain.ContentItem, taxonomy ReferenceSet) map[string]map[string]domain.Score {
	out := make(map[string]map[string]domain.Score, len(items))
	for i := range items {
		out[items[i].URL] = categoryMeans(ScoreReferences(items[i].Embedding, taxonomy))
	}
	return out
}

// EntityAuthority returns url → mean of similarity × category weight.
// Categories missing from weights count with weight 1.0.
func EntityAuthority(items []domain.ContentItem, taxonomy ReferenceSet, weights map[string]float64) map[string]domain.Score {
	if weights == nil {
		weights = DefaultAuthorityWeights
	}
	out := make(map[string]domain.Score, len(items))
	for i := range items {
		scored := ScoreReferences(items[i].Embedding, taxonomy)
		weighted := make([]float64, len(scored))
		for j, s := range scored {
			w, ok := weights[s.Category]
			if !ok {
				w = 1.0
			}
			weighted[j] = s.Score * w
		}
		out[items[i].URL] = domain.Score(vecmath.Mean(weighted))
	}
	return out
}

// EntityGapsSitewide returns entities no page covers at or above threshold, by category.
func EntityGapsSitewide(items []domain.ContentItem, taxonomy ReferenceSet, threshold float64) map[string][]string {
	if threshold <= 0 {
		threshold = DefaultEntityGapThreshold
	}
	return SitewideGaps(contentVectors(items), taxonomy, threshold)
}

func contentVectors(items []domain.ContentItem) [][]float32 {
	out := make([][]float32, len(items))
	for i := range items {
		out[i] = items[i].Embedding
	}
	return out
}
