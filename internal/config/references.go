package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed references_default.yaml
var defaultReferencesYAML []byte

// TermGroup is one named category of reference terms.
type TermGroup struct {
	Category string
	Terms    []string
}

// CategorizedTerms is an ordered category → terms mapping. YAML mapping
// order is kept, so reports list categories the way the file does.
type CategorizedTerms []TermGroup

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *CategorizedTerms) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of category to terms", node.Line)
	}
	groups := make(CategorizedTerms, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var terms []string
		if err := node.Content[i+1].Decode(&terms); err != nil {
			return fmt.Errorf("category %q: %w", node.Content[i].Value, err)
		}
		groups = append(groups, TermGroup{Category: node.Content[i].Value, Terms: terms})
	}
	*c = groups
	return nil
}

// All returns every term in category order.
func (c CategorizedTerms) All() []string {
	var out []string
	for _, g := range c {
		out = append(out, g.Terms...)
	}
	return out
}

// RuleDefinition is a pattern rule as written in the references file.
type RuleDefinition struct {
	Type     string   `yaml:"type"`
	Patterns []string `yaml:"patterns"`
	Flags    string   `yaml:"flags"`
	Weight   float64  `yaml:"weight"`
	Reason   string   `yaml:"reason"`
	Format   string   `yaml:"format"`
}

// References holds the reference sets the analyses score against.
// Queries default to Questions when empty. Rule lists left empty select
// the built-in rule tables.
type References struct {
	Topics           CategorizedTerms   `yaml:"topics"`
	Questions        []string           `yaml:"questions"`
	Queries          []string           `yaml:"queries"`
	Entities         CategorizedTerms   `yaml:"entities"`
	AuthorityWeights map[string]float64 `yaml:"authority_weights"`
	CitationRules    []RuleDefinition   `yaml:"citation_rules"`
	AnswerRules      []RuleDefinition   `yaml:"answer_rules"`
}

// DefaultReferences returns the built-in reference sets.
func DefaultReferences() (*References, error) {
	var refs References
	if err := yaml.Unmarshal(defaultReferencesYAML, &refs); err != nil {
		return nil, fmt.Errorf("failed to parse built-in references: %w", err)
	}
	return &refs, nil
}

// LoadReferences reads a references file. Sections missing from the file
// fall back to the built-in defaults; an empty path returns the defaults.
func LoadReferences(path string) (*References, error) {
	defaults, err := DefaultReferences()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read references file: %w", err)
	}
	var refs References
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("failed to parse references file %s: %w", path, err)
	}

	if len(refs.Topics) == 0 {
		refs.Topics = defaults.Topics
	}
	if len(refs.Questions) == 0 {
		refs.Questions = defaults.Questions
	}
	if len(refs.Entities) == 0 {
		refs.Entities = defaults.Entities
	}
	if refs.AuthorityWeights == nil {
		refs.AuthorityWeights = defaults.AuthorityWeights
	}
	refs.Topics = refs.Topics.unique()
	refs.Entities = refs.Entities.unique()
	refs.Questions = uniqueTerms(refs.Questions, nil)
	refs.Queries = uniqueTerms(refs.Queries, nil)
	return &refs, nil
}

// unique drops terms already listed under an earlier category.
// Categories left without terms are removed.
func (c CategorizedTerms) unique() CategorizedTerms {
	seen := make(map[string]struct{})
	out := make(CategorizedTerms, 0, len(c))
	for _, g := range c {
		terms := uniqueTerms(g.Terms, seen)
		if len(terms) == 0 {
			continue
		}
		out = append(out, TermGroup{Category: g.Category, Terms: terms})
	}
	return out
}

// uniqueTerms keeps the first occurrence of every term. A non-nil seen set
// is shared across calls.
func uniqueTerms(terms []string, seen map[string]struct{}) []string {
	if seen == nil {
		seen = make(map[string]struct{}, len(terms))
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// RetrievalQueries returns the queries used for chunk retrieval simulation.
func (r *References) RetrievalQueries() []string {
	if len(r.Queries) > 0 {
		return r.Queries
	}
	return r.Questions
}
