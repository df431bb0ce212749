package source

import (
	"context"

	"github.com/timmy/citelens/internal/domain"
)

// ContentSource supplies the pages and keywords of one site.
type ContentSource interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// LoadContent reads every page of the site.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []domain.ContentItem: pages without embeddings, normalized.
	//   - error: non-nil if reading or parsing fails.
	LoadContent(ctx context.Context) ([]domain.ContentItem, error)

	// LoadKeywords reads the keyword set, deduplicated by keyword.
	LoadKeywords(ctx context.Context) ([]domain.KeywordItem, error)
}
