package analysis

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/vecmath"
)

// Method selects the clustering algorithm.
type Method string

const (
	MethodHierarchical Method = "hierarchical"
	MethodKMeans       Method = "kmeans"
)

const (
	DefaultDistanceThreshold = 0.3
	DefaultOutlierThreshold  = 0.3
	DefaultRelatedTopK       = 10
	DefaultRelatedMinSim     = 0.5

	kmeansMinAuto     = 2
	kmeansMaxAuto     = 20
	kmeansItemsPerCut = 5
	topicLabelWords   = 3
)

// ClusterOptions configures a clustering run. A zero NumClusters lets the
// method pick the cluster count.
type ClusterOptions struct {
	Method            Method
	NumClusters       int
	DistanceThreshold float64
}

// ParseMethod validates a method name. An empty name selects hierarchical.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return MethodHierarchical, nil
	case MethodHierarchical, MethodKMeans:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
}

// Cluster groups keywords by embedding similarity.
//
// Clusters are ordered by descending size and numbered from 0 in that order.
// Every keyword's ClusterID is set to the id of the cluster holding it; this is
// the only field the run mutates.
func Cluster(keywords []domain.KeywordItem, opts ClusterOptions) ([]domain.ClusterAssignment, error) {
	method, err := ParseMethod(string(opts.Method))
	if err != nil {
		return nil, err
	}
	if opts.DistanceThreshold <= 0 {
		opts.DistanceThreshold = DefaultDistanceThreshold
	}

	switch len(keywords) {
	case 0:
		return []domain.ClusterAssignment{}, nil
	case 1:
		assignKeywordCluster(&keywords[0], 0)
		return []domain.ClusterAssignment{{
			ClusterID:       0,
			Keywords:        []string{keywords[0].Keyword},
			CentroidKeyword: keywords[0].Keyword,
			AvgSimilarity:   1.0,
			TopicLabel:      topicLabel([]string{keywords[0].Keyword}, keywords[0].Keyword),
		}}, nil
	}

	vectors := make([][]float32, len(keywords))
	for i := range keywords {
		vectors[i] = keywords[i].Embedding
	}

	var labels []int
	switch method {
	case MethodHierarchical:
		labels = agglomerate(vectors, opts.NumClusters, opts.DistanceThreshold)
	case MethodKMeans:
		k := opts.NumClusters
		if k <= 0 {
			k = min(max(len(keywords)/kmeansItemsPerCut, kmeansMinAuto), kmeansMaxAuto)
		}
		labels = kmeans(vectors, k, kmeansSeed)
	}

	groups := groupLabels(labels)
	sort.SliceStable(groups, func(i, j int) bool { return len(groups[i]) > len(groups[j]) })

	out := make([]domain.ClusterAssignment, len(groups))
	for id, members := range groups {
		out[id] = describeCluster(id, members, keywords, vectors)
		for _, idx := range members {
			assignKeywordCluster(&keywords[idx], id)
		}
	}
	return out, nil
}

func assignKeywordCluster(k *domain.KeywordItem, id int) {
	cid := id
	k.ClusterID = &cid
}

// groupLabels returns member indices per label, labels in first-appearance order.
func groupLabels(labels []int) [][]int {
	index := make(map[int]int)
	var groups [][]int
	for i, l := range labels {
		g, ok := index[l]
		if !ok {
			g = len(groups)
			index[l] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func describeCluster(id int, members []int, keywords []domain.KeywordItem, vectors [][]float32) domain.ClusterAssignment {
	memberVectors := make([][]float32, len(members))
	names := make([]string, len(members))
	for i, idx := range members {
		memberVectors[i] = vectors[idx]
		names[i] = keywords[idx].Keyword
	}

	centroid := vecmath.Centroid(memberVectors)
	best, bestSim := 0, -2.0
	for i, v := range memberVectors {
		if sim := vecmath.Cosine(centroid, v); sim > bestSim {
			best, bestSim = i, sim
		}
	}

	return domain.ClusterAssignment{
		ClusterID:       id,
		Keywords:        names,
		CentroidKeyword: names[best],
		AvgSimilarity:   domain.Score(vecmath.MeanPairwise(memberVectors)),
		TopicLabel:      topicLabel(names, names[best]),
	}
}

// RelatedKeyword is a keyword with its similarity to a target.
type RelatedKeyword struct {
	Keyword string       `json:"keyword"`
	Score   domain.Score `json:"score"`
}

// FindRelated ranks candidates by similarity to target, skipping the target
// keyword itself and anything below minSimilarity.
func FindRelated(target domain.KeywordItem, candidates []domain.KeywordItem, topK int, minSimilarity float64) []RelatedKeyword {
	if topK <= 0 {
		topK = DefaultRelatedTopK
	}
	out := []RelatedKeyword{}
	for _, c := range candidates {
		if c.Keyword == target.Keyword {
			continue
		}
		if sim := vecmath.Cosine(target.Embedding, c.Embedding); sim >= minSimilarity {
			out = append(out, RelatedKeyword{Keyword: c.Keyword, Score: domain.Score(sim)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// FindOutliers returns the keywords whose mean similarity to every other
// keyword is below threshold.
func FindOutliers(keywords []domain.KeywordItem, threshold float64) []string {
	out := []string{}
	if len(keywords) < 2 {
		return out
	}
	matrix, names := KeywordSimilarityMatrix(keywords)
	for i, row := range matrix {
		var sum float64
		for j, s := range row {
			if j != i {
				sum += s
			}
		}
		if sum/float64(len(row)-1) < threshold {
			out = append(out, names[i])
		}
	}
	return out
}

// KeywordSimilarityMatrix returns the full cosine matrix and the keyword order of its rows.
func KeywordSimilarityMatrix(keywords []domain.KeywordItem) ([][]float64, []string) {
	vectors := make([][]float32, len(keywords))
	names := make([]string, len(keywords))
	for i := range keywords {
		vectors[i] = keywords[i].Embedding
		names[i] = keywords[i].Keyword
	}
	return vecmath.SimilarityMatrix(vectors), names
}

var labelStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "in": {}, "on": {}, "at": {}, "for": {},
	"to": {}, "of": {}, "and": {}, "or": {}, "is": {}, "are": {},
}

// SuggestTopicLabel names a cluster after its most frequent significant words.
func SuggestTopicLabel(c domain.ClusterAssignment) string {
	return topicLabel(c.Keywords, c.CentroidKeyword)
}

func topicLabel(keywords []string, fallback string) string {
	counts := make(map[string]int)
	var order []string
	for _, kw := range keywords {
		for _, w := range strings.Fields(strings.ToLower(kw)) {
			if _, stop := labelStopWords[w]; stop || len(w) <= 2 {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	if len(order) == 0 {
		return fallback
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > topicLabelWords {
		order = order[:topicLabelWords]
	}
	return titleCase(strings.Join(order, " "))
}

// titleCase upper-cases every letter that follows a non-letter.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
