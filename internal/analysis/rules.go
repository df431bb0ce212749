package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleSpec is the uncompiled form of a Rule, as read from configuration.
// Flags holds RE2 flag letters applied to every pattern ("i", "m", "im").
type RuleSpec struct {
	Type     string
	Patterns []string
	Flags    string
	Weight   float64
	Reason   string
	Format   string
}

// Rule is one compiled entry of a RuleTable.
type Rule struct {
	Type     string
	Weight   float64
	Reason   string
	Format   string
	patterns []*regexp.Regexp
	// same patterns without multi-line anchoring, for scoring isolated sections
	inline []*regexp.Regexp
}

// Matches reports whether any pattern of the rule matches text.
func (r Rule) Matches(text string) bool {
	return anyMatch(r.patterns, text)
}

func (r Rule) matchesInline(text string) bool {
	return anyMatch(r.inline, text)
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// RuleTable is an ordered list of pattern rules. Earlier rules win ties.
type RuleTable struct {
	rules []Rule
}

// NewRuleTable compiles specs in order.
// Parameters:
//   - specs: rule definitions; each needs a type, at least one pattern and a weight in (0, 1].
// Returns:
//   - *RuleTable: compiled table.
//   - error: wraps ErrInvalidRule or the regexp compile error.
func NewRuleTable(specs []RuleSpec) (*RuleTable, error) {
	table := &RuleTable{rules: make([]Rule, 0, len(specs))}
	for _, spec := range specs {
		if spec.Type == "" || len(spec.Patterns) == 0 {
			return nil, fmt.Errorf("%w: %q needs a type and patterns", ErrInvalidRule, spec.Type)
		}
		if spec.Weight <= 0 || spec.Weight > 1 {
			return nil, fmt.Errorf("%w: %q weight %v outside (0, 1]", ErrInvalidRule, spec.Type, spec.Weight)
		}
		rule := Rule{Type: spec.Type, Weight: spec.Weight, Reason: spec.Reason, Format: spec.Format}
		inlineFlags := strings.ReplaceAll(spec.Flags, "m", "")
		for _, raw := range spec.Patterns {
			p, err := compileWithFlags(raw, spec.Flags)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s pattern %q: %w", spec.Type, raw, err)
			}
			inline, err := compileWithFlags(raw, inlineFlags)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s pattern %q: %w", spec.Type, raw, err)
			}
			rule.patterns = append(rule.patterns, p)
			rule.inline = append(rule.inline, inline)
		}
		table.rules = append(table.rules, rule)
	}
	return table, nil
}

// MustRuleTable is NewRuleTable for built-in tables; it panics on error.
func MustRuleTable(specs []RuleSpec) *RuleTable {
	t, err := NewRuleTable(specs)
	if err != nil {
		panic(err)
	}
	return t
}

func compileWithFlags(pattern, flags string) (*regexp.Regexp, error) {
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// Rules returns the compiled rules in table order.
func (t *RuleTable) Rules() []Rule {
	return t.rules
}

// FirstMatch returns the first rule whose patterns match text.
func (t *RuleTable) FirstMatch(text string) (Rule, bool) {
	for _, r := range t.rules {
		if r.Matches(text) {
			return r, true
		}
	}
	return Rule{}, false
}

// MaxInlineWeight returns the highest weight of any rule matching text
// without multi-line anchoring, 0 when nothing matches.
func (t *RuleTable) MaxInlineWeight(text string) float64 {
	best := 0.0
	for _, r := range t.rules {
		if r.Weight > best && r.matchesInline(text) {
			best = r.Weight
		}
	}
	return best
}

// DefaultCitationRuleSpecs is the built-in citation pattern table.
var DefaultCitationRuleSpecs = []RuleSpec{
	{
		Type: "definition",
		Patterns: []string{
			`^[\w\s]+ is (?:a|an|the) [\w\s]+(?:that|which|where)`,
			`^[\w\s]+ refers to `,
			`^[\w\s]+ can be defined as `,
			`^Definition:`,
			`^The term [\w\s]+ means`,
		},
		Flags:  "im",
		Weight: 0.9,
		Reason: "Clear definition that LLMs can quote directly",
		Format: "Consider adding 'X is defined as...' phrasing for clearer extraction",
	},
	{
		Type: "statistic",
		Patterns: []string{
			`(?:approximately|about|roughly|nearly|over|more than) \d+%`,
			`\d+(?:\.\d+)?% of (?:people|patients|individuals|Americans)`,
			`studies show that \d+`,
			`according to (?:research|studies|data)`,
			`\$[\d,]+(?:\.\d+)? (?:per|for|on average)`,
		},
		Flags:  "im",
		Weight: 0.85,
		Reason: "Contains statistics that support factual claims",
		Format: "Ensure statistics include source attribution",
	},
	{
		Type: "process",
		Patterns: []string{
			`(?:first|second|third|next|then|finally),?\s`,
			`step \d+:`,
			`the (?:first|next|final) step is`,
			`(?:begins|starts|ends) with`,
		},
		Flags:  "im",
		Weight: 0.75,
		Reason: "Clear process description for procedural answers",
		Format: "Use numbered steps for clearer procedural extraction",
	},
	{
		Type: "list",
		Patterns: []string{
			`^[-*•]\s+\w+`,
			`^\d+\.\s+\w+`,
			`(?:include|includes|including):\s*(?:\n|$)`,
			`types of [\w\s]+ include`,
		},
		Flags:  "im",
		Weight: 0.8,
		Reason: "Structured list format ideal for comprehensive answers",
		Format: "Format as bulleted list with consistent structure",
	},
	{
		Type: "comparison",
		Patterns: []string{
			`(?:unlike|compared to|in contrast to|versus|vs\.?)`,
			`the (?:difference|distinction) between`,
			`(?:similar|different) (?:to|from|than)`,
			`(?:advantages|disadvantages|pros|cons) (?:of|include)`,
		},
		Flags:  "im",
		Weight: 0.7,
		Reason: "Comparison content for nuanced explanations",
		Format: "Use parallel structure for comparison points",
	},
	{
		Type: "authoritative",
		Patterns: []string{
			`according to (?:SAMHSA|NIDA|WHO|CDC|NIH|FDA)`,
			`research (?:shows|indicates|suggests|demonstrates)`,
			`evidence(?:-based)? (?:treatment|approach|practice)`,
			`(?:clinical|scientific) (?:studies|trials|evidence)`,
		},
		Flags:  "im",
		Weight: 0.95,
		Reason: "Authoritative source citation for credibility",
		Format: "Link to or cite the original source",
	},
}

// DefaultAnswerRuleSpecs is the built-in answerable-section table, in priority order.
// Paragraphs matching none of these may still qualify as concise paragraphs.
var DefaultAnswerRuleSpecs = []RuleSpec{
	{
		Type: "definition",
		Patterns: []string{
			`^[\w\s]+ is (?:a|an|the) `,
			`^[\w\s]+ refers to `,
			`^[\w\s]+ means `,
			`^Definition:`,
			`^[\w\s]+: [\w\s]+ is `,
		},
		Flags:  "i",
		Weight: 0.9,
	},
	{
		Type:     "list",
		Patterns: []string{`^[\d\-*•]\s`},
		Flags:    "m",
		Weight:   0.8,
	},
	{
		Type:     "statistic",
		Patterns: []string{`\d+%|\d+ percent|\d+ days|\d+ weeks|\$\d+`},
		Weight:   0.85,
	},
}
