package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longParagraph(words int) string {
	sentence := "Lorem ipsum dolor sit amet consectetur adipiscing elit sed do."
	var parts []string
	for n := 0; n < words; n += 10 {
		parts = append(parts, sentence)
	}
	return strings.Join(parts, " ")
}

func TestChunkText_LongParagraphSplitsBySentence(t *testing.T) {
	text := longParagraph(1200)
	opts := ChunkOptions{TargetSize: 512, Overlap: 50, RespectBoundaries: true}
	budget := 512 * charsPerToken
	overlap := 50 * charsPerToken

	chunks := ChunkText(text, opts)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.LessOrEqual(t, len(chunks[0].Text), budget)
	assert.Greater(t, len(chunks[0].Text), budget*9/10)

	prefix := chunks[0].Text[len(chunks[0].Text)-overlap:] + overlapMarker
	assert.True(t, strings.HasPrefix(chunks[1].Text, prefix), "second chunk should start with the overlap")
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
		assert.LessOrEqual(t, len(c.Text), budget+overlap+len(overlapMarker))
	}
}

func TestChunkText_ReconstructsParagraphs(t *testing.T) {
	p1 := strings.Repeat("a", 1000)
	p2 := strings.Repeat("b", 1000)
	p3 := strings.Repeat("c", 1000)
	text := p1 + "\n\n" + p2 + "\n\n\n" + p3

	chunks := ChunkText(text, ChunkOptions{TargetSize: 512, Overlap: 0, RespectBoundaries: true})

	require.Len(t, chunks, 2)
	assert.Equal(t, p1+"\n\n"+p2, chunks[0].Text)
	assert.Equal(t, p3, chunks[1].Text)

	var joined []string
	for _, c := range chunks {
		joined = append(joined, c.Text)
	}
	assert.Equal(t, strings.Join([]string{p1, p2, p3}, "\n\n"), strings.Join(joined, "\n\n"))
}

func TestChunkText_Edges(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		opts     ChunkOptions
		expected []string
	}{
		{
			name:     "empty",
			text:     "",
			opts:     DefaultChunkOptions(),
			expected: nil,
		},
		{
			name:     "whitespace only",
			text:     " \n\n \t\n\n",
			opts:     DefaultChunkOptions(),
			expected: nil,
		},
		{
			name:     "short paragraphs share a chunk",
			text:     "first paragraph\n\n\n\nsecond paragraph",
			opts:     DefaultChunkOptions(),
			expected: []string{"first paragraph\n\nsecond paragraph"},
		},
		{
			name:     "sliding window",
			text:     strings.Repeat("x", 100),
			opts:     ChunkOptions{TargetSize: 10, Overlap: 5},
			expected: []string{strings.Repeat("x", 40), strings.Repeat("x", 40), strings.Repeat("x", 40), strings.Repeat("x", 40), strings.Repeat("x", 20)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := ChunkText(tc.text, tc.opts)
			var got []string
			for _, c := range chunks {
				got = append(got, c.Text)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestChunkText_UnpunctuatedParagraphStaysWithinBudget(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 500))
	budget := 100 * charsPerToken

	chunks := ChunkText(text, ChunkOptions{TargetSize: 100, Overlap: 0, RespectBoundaries: true})

	require.Greater(t, len(chunks), 1)
	var joined []string
	for _, c := range chunks {
		if len(c.Text) > budget {
			t.Errorf("expected chunk %d within %d bytes, got %d", c.Index, budget, len(c.Text))
		}
		joined = append(joined, c.Text)
	}
	assert.Equal(t, text, strings.Join(joined, " "))
}

func TestSplitOversized(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		budget   int
		expected []string
	}{
		{name: "fits", text: "short", budget: 10, expected: []string{"short"}},
		{name: "at whitespace", text: "aaa bbb ccc", budget: 5, expected: []string{"aaa", "bbb", "ccc"}},
		{name: "no whitespace", text: "abcdefghij", budget: 4, expected: []string{"abcd", "efgh", "ij"}},
		{name: "rune boundary", text: "ééé", budget: 3, expected: []string{"é", "é", "é"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, splitOversized(tc.text, tc.budget))
		})
	}
}

func TestSplitSentences(t *testing.T) {
	testCases := []struct {
		text     string
		expected []string
	}{
		{text: "One. Two!  Three? Four", expected: []string{"One.", "Two!", "Three?", "Four"}},
		{text: "Costs rose 3.5 percent.", expected: []string{"Costs rose 3.5 percent."}},
		{text: "No terminator", expected: []string{"No terminator"}},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expected, splitSentences(tc.text))
		})
	}
}
