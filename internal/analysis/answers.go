package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/timmy/citelens/internal/domain"
)

const (
	DefaultAnswerThreshold           = 0.5
	DefaultQuestionCoverageThreshold = 0.6
	DefaultFAQGapThreshold           = 0.5

	minSectionChars       = 50
	conciseMinWords       = 30
	conciseMaxWords       = 100
	conciseParagraphScore = 0.7
	sectionPreviewChars   = 200
	maxAnswerableSections = 10

	noAnswerableSectionsMessage = "Add clearly structured answer paragraphs that can be quoted by AI"
)

var (
	paragraphSplit = regexp.MustCompile(`\n\n+`)

	definitionBonus = regexp.MustCompile(` is (?:a|an|the) `)
	listBonus       = regexp.MustCompile(`(?m)^[\d\-*]\s`)
	statisticBonus  = regexp.MustCompile(`\d+%|\d+ percent`)
)

// AnswerDensity scores pages against a question set and finds their quotable sections.
type AnswerDensity struct {
	Questions ReferenceSet
	Threshold float64
	Sections  *RuleTable
}

// NewAnswerDensity returns an analyzer using the default answerable-section rules.
func NewAnswerDensity(questions ReferenceSet, threshold float64) *AnswerDensity {
	if threshold <= 0 {
		threshold = DefaultAnswerThreshold
	}
	return &AnswerDensity{
		Questions: questions,
		Threshold: threshold,
		Sections:  MustRuleTable(DefaultAnswerRuleSpecs),
	}
}

// Analyze scores one page. The page text is read from item.Content.
func (a *AnswerDensity) Analyze(item *domain.ContentItem) domain.AnswerDensityResult {
	scored := ScoreReferences(item.Embedding, a.Questions)
	result := domain.AnswerDensityResult{
		CoverageResult:     buildCoverage(item.URL, scored, a.Threshold, NearMissRecommender),
		AnswerableSections: FindAnswerableSections(item.Content, a.Sections),
	}
	if len(result.AnswerableSections) == 0 {
		result.Recommendations = append(result.Recommendations, noAnswerableSectionsMessage)
	}
	return result
}

// FindAnswerableSections returns up to ten paragraphs shaped for direct quotation,
// best first. Rules are tried in table order; a paragraph of 30 to 100 words that
// matches no rule still counts as a concise paragraph.
func FindAnswerableSections(text string, rules *RuleTable) []domain.AnswerableSection {
	sections := []domain.AnswerableSection{}
	for i, para := range paragraphSplit.Split(strings.TrimSpace(text), -1) {
		para = strings.TrimSpace(para)
		if len(para) < minSectionChars {
			continue
		}

		wordCount := len(strings.Fields(para))
		sectionType, score := "", 0.0
		if rule, ok := rules.FirstMatch(para); ok {
			sectionType, score = rule.Type, rule.Weight
		} else if wordCount >= conciseMinWords && wordCount <= conciseMaxWords {
			sectionType, score = "concise_paragraph", conciseParagraphScore
		}
		if sectionType == "" {
			continue
		}

		sections = append(sections, domain.AnswerableSection{
			SectionIndex: i,
			SectionType:  sectionType,
			QuoteScore:   domain.Score(score),
			WordCount:    wordCount,
			Preview:      truncateWithEllipsis(para, sectionPreviewChars),
		})
	}

	sort.SliceStable(sections, func(i, j int) bool { return sections[i].QuoteScore > sections[j].QuoteScore })
	if len(sections) > maxAnswerableSections {
		sections = sections[:maxAnswerableSections]
	}
	return sections
}

// SectionAnswerability is the blend of semantic match and structure for one section.
type SectionAnswerability struct {
	BestMatchingQuestion string       `json:"best_matching_question"`
	SemanticScore        domain.Score `json:"semantic_score"`
	StructuralScore      domain.Score `json:"structural_score"`
	TotalScore           domain.Score `json:"total_score"`
	WordCount            int          `json:"word_count"`
}

// ScoreSectionAnswerability scores how well one section answers the question set.
// Total is min(1, 0.7·best similarity + structural bonus).
func ScoreSectionAnswerability(sectionText string, sectionVector []float32, questions ReferenceSet) SectionAnswerability {
	var out SectionAnswerability
	best := 0.0
	for _, s := range ScoreReferences(sectionVector, questions) {
		if s.Score > best {
			best = s.Score
			out.BestMatchingQuestion = s.Name
		}
	}

	structural := 0.0
	if definitionBonus.MatchString(sectionText) {
		structural += 0.2
	}
	if listBonus.MatchString(sectionText) {
		structural += 0.15
	}
	if statisticBonus.MatchString(sectionText) {
		structural += 0.1
	}
	out.WordCount = len(strings.Fields(sectionText))
	if out.WordCount >= 50 && out.WordCount <= 150 {
		structural += 0.1
	}

	out.SemanticScore = domain.Score(best)
	out.StructuralScore = domain.Score(structural)
	out.TotalScore = domain.Score(min(1.0, best*0.7+structural))
	return out
}

// QuestionGaps maps every question to the pages answering it at or above
// threshold, best first. Unanswered questions map to an empty list.
func QuestionGaps(items []domain.ContentItem, questions ReferenceSet, threshold float64) map[string][]NamedScore {
	out := make(map[string][]NamedScore, len(questions))
	for _, q := range questions {
		out[q.Name] = []NamedScore{}
	}
	for i := range items {
		for _, s := range ScoreReferences(items[i].Embedding, questions) {
			if s.Score >= threshold {
				out[s.Name] = append(out[s.Name], NamedScore{Name: items[i].URL, Score: s.Score})
			}
		}
	}
	for q := range out {
		list := out[q]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })
	}
	return out
}

type FAQSuggestion = domain.FAQSuggestion

// SuggestFAQ lists questions no page covers (high priority) and questions whose
// best page scores below gapThreshold (medium priority). High comes first; within
// a priority the question order is kept.
// Parameters:
//   - items: pages to search.
//   - questions: the question set.
//   - coverageThreshold: minimum similarity for a page to count as covering a question.
//   - gapThreshold: best coverage below this is suggested for expansion.
func SuggestFAQ(items []domain.ContentItem, questions ReferenceSet, coverageThreshold, gapThreshold float64) []FAQSuggestion {
	coverage := QuestionGaps(items, questions, coverageThreshold)

	suggestions := []FAQSuggestion{}
	for _, q := range questions {
		pages := coverage[q.Name]
		switch {
		case len(pages) == 0:
			suggestions = append(suggestions, FAQSuggestion{
				Question:       q.Name,
				Priority:       "high",
				Recommendation: "Create new content specifically answering: " + q.Name,
			})
		case pages[0].Score < gapThreshold:
			best := pages[0]
			suggestions = append(suggestions, FAQSuggestion{
				Question:             q.Name,
				Priority:             "medium",
				BestExistingCoverage: &best,
				Recommendation:       fmt.Sprintf("Expand %s to better answer this question", best.Name),
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return priorityRank(suggestions[i].Priority) < priorityRank(suggestions[j].Priority)
	})
	return suggestions
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	}
	return 3
}

func truncateWithEllipsis(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncateBytes(s, n) + "..."
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
