package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/timmy/citelens/internal/domain"
)

const (
	charsPerToken = 4

	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50

	overlapMarker = " ... "
)

// ChunkOptions sizes chunks in approximate tokens of four characters.
type ChunkOptions struct {
	TargetSize        int
	Overlap           int
	RespectBoundaries bool
}

// DefaultChunkOptions returns 512-token chunks with a 50-token overlap split on paragraph boundaries.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{TargetSize: DefaultChunkSize, Overlap: DefaultChunkOverlap, RespectBoundaries: true}
}

// ChunkText splits text into retrieval chunks. It never returns an empty chunk.
//
// With RespectBoundaries, paragraphs are packed into chunks up to the budget and
// an oversized paragraph is packed sentence by sentence; every chunk after the
// first is then prefixed with the tail of its predecessor and the " ... " marker.
// Without it, a fixed window slides over the raw text with stride TargetSize-Overlap.
func ChunkText(text string, opts ChunkOptions) []domain.Chunk {
	if opts.TargetSize <= 0 {
		opts.TargetSize = DefaultChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	budget := opts.TargetSize * charsPerToken
	overlap := opts.Overlap * charsPerToken

	var texts []string
	if opts.RespectBoundaries {
		texts = packParagraphs(text, budget)
		if overlap > 0 && len(texts) > 1 {
			withOverlap := make([]string, len(texts))
			withOverlap[0] = texts[0]
			for i := 1; i < len(texts); i++ {
				withOverlap[i] = tailBytes(texts[i-1], overlap) + overlapMarker + texts[i]
			}
			texts = withOverlap
		}
	} else {
		texts = slideWindow(text, budget, overlap)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{Index: i, Text: t, WordCount: len(strings.Fields(t))}
	}
	return chunks
}

func packParagraphs(text string, budget int) []string {
	var chunks []string
	var current string
	flush := func() {
		if c := strings.TrimSpace(current); c != "" {
			chunks = append(chunks, c)
		}
	}

	for _, para := range paragraphSplit.Split(strings.TrimSpace(text), -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(current)+len(para) <= budget {
			current = joinNonEmpty(current, para, "\n\n")
			continue
		}

		flush()
		if len(para) <= budget {
			current = para
			continue
		}
		current = ""
		for _, sent := range splitSentences(para) {
			for _, piece := range splitOversized(sent, budget) {
				if len(current)+len(piece) <= budget {
					current = joinNonEmpty(current, piece, " ")
					continue
				}
				flush()
				current = piece
			}
		}
	}
	flush()
	return chunks
}

// splitOversized cuts a sentence longer than budget into pieces of at most
// budget bytes, at the last whitespace before the limit when there is one.
func splitOversized(s string, budget int) []string {
	var out []string
	for len(s) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if ws := strings.LastIndexFunc(s[:cut], unicode.IsSpace); ws > 0 {
			cut = ws
		}
		if cut == 0 {
			cut = alignRuneStart(s, 1)
		}
		out = append(out, s[:cut])
		s = strings.TrimLeftFunc(s[cut:], unicode.IsSpace)
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func slideWindow(text string, budget, overlap int) []string {
	stride := budget - overlap
	if stride <= 0 {
		stride = budget
	}
	var chunks []string
	for start := 0; start < len(text); start += stride {
		start = alignRuneStart(text, start)
		end := alignRuneStart(text, min(start+budget, len(text)))
		if end <= start {
			end = len(text)
		}
		if c := strings.TrimSpace(text[start:end]); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func joinNonEmpty(current, next, sep string) string {
	if current == "" {
		return next
	}
	return current + sep + next
}

// splitSentences splits after '.', '!' or '?' wherever whitespace follows,
// dropping that whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r != '.' && r != '!' && r != '?' {
			i += size
			continue
		}
		j := i + size
		k := j
		for k < len(text) {
			ws, wsize := utf8.DecodeRuneInString(text[k:])
			if !unicode.IsSpace(ws) {
				break
			}
			k += wsize
		}
		if k > j {
			out = append(out, text[start:j])
			start = k
		}
		i = k
	}
	return append(out, text[start:])
}

// tailBytes returns the last n bytes of s, moved forward to a rune boundary.
func tailBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[alignRuneStart(s, len(s)-n):]
}

func alignRuneStart(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
