package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/citelens/internal/domain"
)

const definitionParagraph = "Addiction is a chronic disease that affects the brain and the behavior of the person."

func TestNewRuleTable(t *testing.T) {
	testCases := []struct {
		name    string
		specs   []RuleSpec
		wantErr error
	}{
		{name: "defaults", specs: DefaultCitationRuleSpecs},
		{name: "missing patterns", specs: []RuleSpec{{Type: "x", Weight: 0.5}}, wantErr: ErrInvalidRule},
		{name: "weight out of range", specs: []RuleSpec{{Type: "x", Patterns: []string{"a"}, Weight: 1.5}}, wantErr: ErrInvalidRule},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRuleTable(tc.specs)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	_, err := NewRuleTable([]RuleSpec{{Type: "bad", Patterns: []string{"("}, Weight: 0.5}})
	assert.Error(t, err)
}

func TestRuleTable_FirstMatchKeepsOrder(t *testing.T) {
	table := MustRuleTable([]RuleSpec{
		{Type: "low", Patterns: []string{"rehab"}, Weight: 0.2},
		{Type: "high", Patterns: []string{"rehab"}, Weight: 0.9},
	})

	rule, ok := table.FirstMatch("inpatient rehab")
	require.True(t, ok)
	assert.Equal(t, "low", rule.Type)
	assert.Equal(t, 0.9, table.MaxInlineWeight("inpatient rehab"))
	assert.Zero(t, table.MaxInlineWeight("nothing here"))
}

func TestCitations_FindOpportunities(t *testing.T) {
	c := NewCitations(nil)
	text := definitionParagraph + "\n\n" + definitionParagraph + "\n\nshort one"

	got := c.FindOpportunities(text)

	require.Len(t, got, 1)
	assert.Equal(t, "definition", got[0].PatternType)
	assert.Equal(t, "Clear definition that LLMs can quote directly", got[0].Reason)
	assert.Equal(t, "Consider adding 'X is defined as...' phrasing for clearer extraction", got[0].SuggestedFormat)
	assert.Equal(t, definitionParagraph, got[0].SectionText)
}

func TestCitations_CapsLongSections(t *testing.T) {
	sentence := "Research shows that structured care improves long term outcomes for many people. "
	para := strings.TrimSpace(strings.Repeat(sentence, 10))

	got := NewCitations(nil).FindOpportunities(para)

	require.Len(t, got, 1)
	assert.LessOrEqual(t, len(got[0].SectionText), maxCitationSection)
	assert.True(t, strings.HasSuffix(got[0].SectionText, "people."), "section should end on a full sentence")
}

func TestCitations_ScorePotential(t *testing.T) {
	c := NewCitations(nil)
	plain := "a calm river moves slowly across the quiet valley while birds sing softly above the old wooden bridge near the small farm."

	assert.InDelta(t, 2.0/3.0, c.ScorePotential(plain), 1e-9)
	// definition weight, 85 chars, one sentence, no factual indicators
	assert.InDelta(t, (0.9+0.7+1.0+0)/4, c.ScorePotential(definitionParagraph), 1e-9)
}

func TestBandScore(t *testing.T) {
	testCases := []struct {
		v        float64
		expected float64
	}{
		{v: 100, expected: 1.0},
		{v: 300, expected: 1.0},
		{v: 50, expected: 0.7},
		{v: 301, expected: 0.7},
		{v: 500, expected: 0.7},
		{v: 49, expected: 0.4},
		{v: 501, expected: 0.4},
	}
	for _, tc := range testCases {
		if got := bandScore(tc.v, 100, 300, 50, 500); got != tc.expected {
			t.Errorf("bandScore(%v): expected %v, got %v", tc.v, tc.expected, got)
		}
	}
}

func TestCitations_Analyze(t *testing.T) {
	c := NewCitations(nil)

	empty := c.Analyze("u", "nothing quotable")
	assert.Zero(t, empty.TotalCitationPotential)
	assert.NotNil(t, empty.Opportunities)

	res := c.Analyze("u", definitionParagraph)
	require.Len(t, res.Opportunities, 1)
	want := float64(res.Opportunities[0].CitationScore) + 0.02
	assert.InDelta(t, want, float64(res.TotalCitationPotential), 1e-9)
}

func TestCitations_SuggestImprovements(t *testing.T) {
	got := NewCitations(nil).SuggestImprovements("thin page", 0)

	assert.Equal(t, []string{
		"Add clear definitions using 'X is...' or 'X refers to...' phrasing",
		"Include relevant statistics with source attribution",
		"Reference authoritative sources like SAMHSA, NIDA, or peer-reviewed research",
		"Add bulleted or numbered lists for comprehensive coverage",
		"Add more structured, quotable paragraphs (3-5 sentences each)",
		"Expand content to at least 800 words for comprehensive coverage",
	}, got)
}

func TestCitations_Compare(t *testing.T) {
	items := []domain.ContentItem{
		{URL: "/thin", Title: "Thin", Content: "nothing quotable"},
		{URL: "/definition", Title: "Definition", Content: definitionParagraph},
	}

	rows := NewCitations(nil).Compare(items)
	require.Len(t, rows, 2)
	assert.Equal(t, "/definition", rows[0].URL)
	assert.Equal(t, 1, rows[0].OpportunityCount)
	require.NotNil(t, rows[0].TopOpportunity)
	assert.Equal(t, "/thin", rows[1].URL)
	assert.Nil(t, rows[1].TopOpportunity)
}
