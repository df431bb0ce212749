package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/vecmath"
)

const (
	DefaultCitationTarget = 0.7

	minCitationSection    = 50
	maxCitationSection    = 500
	citationDedupeChars   = 100
	maxCitationResults    = 10
	highValueWeight       = 0.8
	minOpportunitiesCount = 3
	minComprehensiveWords = 800

	defaultCitationFormat = "Maintain clear, concise structure"
)

var factualIndicator = regexp.MustCompile(`\d+|[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`)

// TypeAdvice is the improvement message emitted when a high-value rule type
// is missing from a page.
type TypeAdvice struct {
	Type    string
	Message string
}

// DefaultCitationAdvice lists the advice in the order it is reported.
var DefaultCitationAdvice = []TypeAdvice{
	{Type: "definition", Message: "Add clear definitions using 'X is...' or 'X refers to...' phrasing"},
	{Type: "statistic", Message: "Include relevant statistics with source attribution"},
	{Type: "authoritative", Message: "Reference authoritative sources like SAMHSA, NIDA, or peer-reviewed research"},
	{Type: "list", Message: "Add bulleted or numbered lists for comprehensive coverage"},
}

// Citations detects and scores citation-worthy sections with a swappable rule table.
type Citations struct {
	Rules  *RuleTable
	Advice []TypeAdvice
}

// NewCitations returns a detector for rules, or the built-in table when rules is nil.
func NewCitations(rules *RuleTable) *Citations {
	if rules == nil {
		rules = MustRuleTable(DefaultCitationRuleSpecs)
	}
	return &Citations{Rules: rules, Advice: DefaultCitationAdvice}
}

// FindOpportunities returns every paragraph that matches a rule, scored and
// deduplicated, best first. The first matching rule decides the pattern type.
func (c *Citations) FindOpportunities(text string) []domain.CitationOpportunity {
	var opportunities []domain.CitationOpportunity
	seen := make(map[string]struct{})

	for _, para := range paragraphSplit.Split(strings.TrimSpace(text), -1) {
		para = strings.TrimSpace(para)
		if len(para) < minCitationSection {
			continue
		}
		rule, ok := c.Rules.FirstMatch(para)
		if !ok {
			continue
		}

		section := capSection(para, maxCitationSection)
		key := truncateBytes(section, citationDedupeChars)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		format := rule.Format
		if format == "" {
			format = defaultCitationFormat
		}
		opportunities = append(opportunities, domain.CitationOpportunity{
			SectionText:     section,
			CitationScore:   domain.Score(c.ScorePotential(section)),
			PatternType:     rule.Type,
			Reason:          rule.Reason,
			SuggestedFormat: format,
		})
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].CitationScore > opportunities[j].CitationScore
	})
	return opportunities
}

// capSection cuts a paragraph to limit bytes and, when it was longer, drops the
// trailing partial sentence.
func capSection(para string, limit int) string {
	if len(para) <= limit {
		return para
	}
	section := truncateBytes(para, limit)
	if sentences := splitSentences(section); len(sentences) > 1 {
		section = strings.Join(sentences[:len(sentences)-1], " ")
	}
	return section
}

// ScorePotential scores one section in [0, 1] as the mean of its pattern weight
// (only when some rule matches), a length score, a sentence-length score and
// its factual density.
func (c *Citations) ScorePotential(section string) float64 {
	var factors []float64
	if w := c.Rules.MaxInlineWeight(section); w > 0 {
		factors = append(factors, w)
	}

	factors = append(factors, bandScore(float64(len(section)), 100, 300, 50, 500))

	avgSentence := float64(len(section)) / float64(max(len(splitSentences(section)), 1))
	factors = append(factors, bandScore(avgSentence, 60, 150, 40, 200))

	indicators := len(factualIndicator.FindAllStringIndex(section, -1))
	factors = append(factors, min(1.0, float64(indicators)/5))

	return vecmath.Mean(factors)
}

// bandScore is 1.0 inside [lo, hi], 0.7 inside [outerLo, outerHi] and 0.4 elsewhere.
func bandScore(v, lo, hi, outerLo, outerHi float64) float64 {
	switch {
	case v >= lo && v <= hi:
		return 1.0
	case v >= outerLo && v <= outerHi:
		return 0.7
	default:
		return 0.4
	}
}

// Analyze computes the citation readiness of one page: the mean opportunity
// score plus a quantity bonus of 0.02 per opportunity (at most 0.2), capped at 1.
func (c *Citations) Analyze(url, text string) domain.CitationResult {
	opportunities := c.FindOpportunities(text)
	result := domain.CitationResult{URL: url, Opportunities: []domain.CitationOpportunity{}}
	if len(opportunities) == 0 {
		return result
	}

	scores := make([]float64, len(opportunities))
	for i, o := range opportunities {
		scores[i] = float64(o.CitationScore)
	}
	bonus := min(0.2, float64(len(opportunities))*0.02)
	result.TotalCitationPotential = domain.Score(min(1.0, vecmath.Mean(scores)+bonus))

	if len(opportunities) > maxCitationResults {
		opportunities = opportunities[:maxCitationResults]
	}
	result.Opportunities = opportunities
	return result
}

type CitationComparison = domain.CitationComparison

// Compare ranks pages by citation potential, highest first.
func (c *Citations) Compare(items []domain.ContentItem) []CitationComparison {
	results := make([]domain.CitationResult, len(items))
	for i := range items {
		results[i] = c.Analyze(items[i].URL, items[i].Content)
	}
	return RankCitations(items, results)
}

// RankCitations builds the comparison rows from results already computed.
// results[i] must belong to items[i].
func RankCitations(items []domain.ContentItem, results []domain.CitationResult) []CitationComparison {
	rows := make([]CitationComparison, 0, len(items))
	for i := range items {
		res := results[i]
		row := CitationComparison{
			URL:                    items[i].URL,
			Title:                  items[i].Title,
			TotalCitationPotential: res.TotalCitationPotential,
			OpportunityCount:       len(res.Opportunities),
		}
		if len(res.Opportunities) > 0 {
			top := res.Opportunities[0]
			row.TopOpportunity = &top
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalCitationPotential > rows[j].TotalCitationPotential
	})
	return rows
}

// SuggestImprovements returns advice for raising a page's mean opportunity
// score to target. Nothing is suggested once the target is met.
func (c *Citations) SuggestImprovements(text string, target float64) []string {
	if target <= 0 {
		target = DefaultCitationTarget
	}
	opportunities := c.FindOpportunities(text)
	scores := make([]float64, len(opportunities))
	for i, o := range opportunities {
		scores[i] = float64(o.CitationScore)
	}
	suggestions := []string{}
	if vecmath.Mean(scores) >= target {
		return suggestions
	}

	found := make(map[string]bool)
	for _, o := range opportunities {
		for _, r := range c.Rules.Rules() {
			if r.matchesInline(o.SectionText) {
				found[r.Type] = true
			}
		}
	}
	highValue := make(map[string]bool)
	for _, r := range c.Rules.Rules() {
		if r.Weight >= highValueWeight {
			highValue[r.Type] = true
		}
	}
	for _, a := range c.Advice {
		if highValue[a.Type] && !found[a.Type] {
			suggestions = append(suggestions, a.Message)
		}
	}

	if len(opportunities) < minOpportunitiesCount {
		suggestions = append(suggestions, "Add more structured, quotable paragraphs (3-5 sentences each)")
	}
	if len(strings.Fields(text)) < minComprehensiveWords {
		suggestions = append(suggestions, "Expand content to at least 800 words for comprehensive coverage")
	}
	return suggestions
}
