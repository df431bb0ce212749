package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/vecmath"
)

// Default coverage thresholds.
const (
	DefaultCompletenessThreshold = 0.4
	DefaultGapThreshold          = 0.35
	DefaultDistributionThreshold = 0.5
	DefaultRedundancyThreshold   = 0.85
)

// Reference is one named concept of a reference set. Category is empty for flat sets.
type Reference struct {
	Name     string
	Category string
	Vector   []float32
}

// ReferenceSet is an ordered list of references. Order is kept in every result.
type ReferenceSet []Reference

// Categories returns the distinct categories in first-appearance order.
func (rs ReferenceSet) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rs {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

// Unique drops references whose name already appeared, keeping the first.
// Results are keyed by name, so a name may occur only once per set.
func (rs ReferenceSet) Unique() ReferenceSet {
	seen := make(map[string]struct{}, len(rs))
	out := make(ReferenceSet, 0, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		out = append(out, r)
	}
	return out
}

// ScoredReference is a reference with its similarity to the subject.
type ScoredReference struct {
	Reference
	Score float64
}

// BandRule turns the references whose score falls in [Lower·t, Upper·t) into
// a single message "<Message><names joined by ', '>".
type BandRule struct {
	Message  string
	Lower    float64
	Upper    float64
	SortDesc bool
	Limit    int
}

// Recommender produces ordered recommendation messages from scored references.
type Recommender interface {
	Recommend(scored []ScoredReference, threshold float64) []string
}

// BandRecommender applies its rules in order; a rule with no matching names emits nothing.
type BandRecommender []BandRule

// Recommend implements Recommender.
func (b BandRecommender) Recommend(scored []ScoredReference, threshold float64) []string {
	var out []string
	for _, rule := range b {
		var picked []ScoredReference
		for _, s := range scored {
			if s.Score >= rule.Lower*threshold && s.Score < rule.Upper*threshold {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			continue
		}
		if rule.SortDesc {
			sort.SliceStable(picked, func(i, j int) bool { return picked[i].Score > picked[j].Score })
		}
		if rule.Limit > 0 && len(picked) > rule.Limit {
			picked = picked[:rule.Limit]
		}
		names := make([]string, len(picked))
		for i, p := range picked {
			names[i] = p.Name
		}
		out = append(out, rule.Message+strings.Join(names, ", "))
	}
	return out
}

var negInf = math.Inf(-1)

// NearMissRecommender is the default two-band policy: names just under the
// threshold are surfaced for expansion, names far below it as missing sections.
var NearMissRecommender = BandRecommender{
	{Message: "Expand content to better answer: ", Lower: 0.7, Upper: 1.0, Limit: 3},
	{Message: "Add new sections addressing: ", Lower: negInf, Upper: 0.5, Limit: 3},
}

// CompletenessRecommender is the topic-completeness policy.
var CompletenessRecommender = BandRecommender{
	{Message: "Consider adding content about: ", Lower: negInf, Upper: 1.0, SortDesc: true, Limit: 5},
	{Message: "Expand coverage of: ", Lower: 0.7, Upper: 1.0, Limit: 3},
}

// ScoreReferences computes the similarity of subject to every reference, keeping order.
// Repeated names are scored once, at their first position.
func ScoreReferences(subject []float32, refs ReferenceSet) []ScoredReference {
	refs = refs.Unique()
	scored := make([]ScoredReference, len(refs))
	for i, r := range refs {
		scored[i] = ScoredReference{Reference: r, Score: vecmath.Cosine(subject, r.Vector)}
	}
	return scored
}

// ScoreCoverage classifies every reference as covered (score ≥ threshold) or missing
// and averages the scores. A nil recommender produces no recommendations.
// Parameters:
//   - url: identifier of the subject, copied into the result.
//   - subject: the subject vector.
//   - refs: reference set to compare against.
//   - threshold: minimum similarity for a reference to count as covered.
//   - rec: recommendation policy.
// Returns:
//   - domain.CoverageResult: partitioned coverage with per-item scores.
func ScoreCoverage(url string, subject []float32, refs ReferenceSet, threshold float64, rec Recommender) domain.CoverageResult {
	scored := ScoreReferences(subject, refs)
	return buildCoverage(url, scored, threshold, rec)
}

func buildCoverage(url string, scored []ScoredReference, threshold float64, rec Recommender) domain.CoverageResult {
	result := domain.CoverageResult{
		URL:             url,
		Covered:         []string{},
		Missing:         []string{},
		PerItemScore:    make(map[string]domain.Score, len(scored)),
		Recommendations: []string{},
	}

	scores := make([]float64, len(scored))
	for i, s := range scored {
		scores[i] = s.Score
		result.PerItemScore[s.Name] = domain.Score(s.Score)
		if s.Score >= threshold {
			result.Covered = append(result.Covered, s.Name)
		} else {
			result.Missing = append(result.Missing, s.Name)
		}
	}
	result.OverallScore = domain.Score(vecmath.Mean(scores))

	if rec != nil {
		var below []ScoredReference
		for _, s := range scored {
			if s.Score < threshold {
				below = append(below, s)
			}
		}
		if msgs := rec.Recommend(below, threshold); len(msgs) > 0 {
			result.Recommendations = msgs
		}
	}
	return result
}

// AssessCompleteness scores a page against the expected topics.
func AssessCompleteness(item *domain.ContentItem, topics ReferenceSet, threshold float64) domain.CoverageResult {
	if threshold <= 0 {
		threshold = DefaultCompletenessThreshold
	}
	return ScoreCoverage(item.URL, item.Embedding, topics, threshold, CompletenessRecommender)
}

// NamedScore pairs a name (topic, url, query) with a similarity.
type NamedScore = domain.NamedScore

// FindContentGaps returns the topics scoring below gapThreshold, worst first.
func FindContentGaps(item *domain.ContentItem, topics ReferenceSet, gapThreshold float64) []NamedScore {
	var gaps []NamedScore
	for _, s := range ScoreReferences(item.Embedding, topics) {
		if s.Score < gapThreshold {
			gaps = append(gaps, NamedScore{Name: s.Name, Score: s.Score})
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].Score < gaps[j].Score })
	return gaps
}

// CompareCoverage returns url → topic → similarity for every page.
func CompareCoverage(items []domain.ContentItem, topics ReferenceSet) map[string]map[string]domain.Score {
	out := make(map[string]map[string]domain.Score, len(items))
	for i := range items {
		row := make(map[string]domain.Score, len(topics))
		for _, s := range ScoreReferences(items[i].Embedding, topics) {
			row[s.Name] = domain.Score(s.Score)
		}
		out[items[i].URL] = row
	}
	return out
}

// BestContentForTopic ranks pages by similarity to a topic vector.
func BestContentForTopic(items []domain.ContentItem, topic []float32, topK int) []NamedScore {
	vectors := make([][]float32, len(items))
	for i := range items {
		vectors[i] = items[i].Embedding
	}
	matches := vecmath.MostSimilar(topic, vectors, topK)
	out := make([]NamedScore, len(matches))
	for i, m := range matches {
		out[i] = NamedScore{Name: items[m.Index].URL, Score: m.Score}
	}
	return out
}

// TopicDistribution counts the pages covering each topic at or above threshold.
func TopicDistribution(items []domain.ContentItem, topics ReferenceSet, threshold float64) map[string]int {
	counts := make(map[string]int, len(topics))
	for _, t := range topics {
		counts[t.Name] = 0
	}
	for i := range items {
		for _, s := range ScoreReferences(items[i].Embedding, topics) {
			if s.Score >= threshold {
				counts[s.Name]++
			}
		}
	}
	return counts
}

// ContentRedundancy returns page pairs at or above threshold, most similar first.
func ContentRedundancy(items []domain.ContentItem, threshold float64) []domain.RedundantPair {
	var pairs []domain.RedundantPair
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			sim := vecmath.Cosine(items[i].Embedding, items[j].Embedding)
			if sim >= threshold {
				pairs = append(pairs, domain.RedundantPair{URLA: items[i].URL, URLB: items[j].URL, Score: domain.Score(sim)})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	return pairs
}

// SitewideGaps returns the references whose best score across all subjects is
// still below threshold, grouped by category. Categories without gaps are omitted.
func SitewideGaps(subjects [][]float32, refs ReferenceSet, threshold float64) map[string][]string {
	gaps := make(map[string][]string)
	for _, r := range refs {
		best := 0.0
		for _, s := range subjects {
			best = math.Max(best, vecmath.Cosine(s, r.Vector))
		}
		if best < threshold {
			gaps[r.Category] = append(gaps[r.Category], r.Name)
		}
	}
	return gaps
}
