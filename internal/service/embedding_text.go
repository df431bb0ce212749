package service

import "github.com/timmy/citelens/internal/domain"

const (
	maxEmbeddingRunes     = 8000
	maxStoredContentRunes = 5000
)

// contentEmbeddingText is the text a page is embedded from:
// meta description, title and body separated by blank lines.
func contentEmbeddingText(item *domain.ContentItem) string {
	text := item.Title + "\n\n" + item.Content
	if item.MetaDescription != "" {
		text = item.MetaDescription + "\n\n" + text
	}
	return truncateRunes(text, maxEmbeddingRunes)
}

func truncateRunes(text string, n int) string {
	if len(text) <= n {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
