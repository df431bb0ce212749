package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/logger"
	"github.com/timmy/citelens/internal/source"
)

// ModelEmbedder is an Embedder that reports the model it embeds with.
type ModelEmbedder interface {
	Embedder
	Model() string
	Dimensions() int
}

// GenerateService embeds a site's pages and keywords into an embeddings bundle.
type GenerateService struct {
	embedder ModelEmbedder
	indexer  SiteIndexer
	now      func() time.Time
}

// GenerateOptions controls one generate run.
type GenerateOptions struct {
	OutputDir string
	SkipCache bool
}

// GenerateStats reports what a generate run produced.
type GenerateStats struct {
	Path         string
	ContentCount int
	KeywordCount int
	Indexed      int
	Duration     time.Duration
}

// NewGenerateService creates a GenerateService. indexer may be nil to skip
// updating the site index.
func NewGenerateService(embedder ModelEmbedder, indexer SiteIndexer) *GenerateService {
	return &GenerateService{embedder: embedder, indexer: indexer, now: time.Now}
}

// Generate loads src, embeds every page and keyword and writes the bundle
// into opts.OutputDir.
func (s *GenerateService) Generate(ctx context.Context, src source.ContentSource, opts GenerateOptions) (*GenerateStats, error) {
	start := s.now()
	ctx = logger.SetComponent(ctx, "generate")

	items, err := src.LoadContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("content source returned no pages")
	}
	keywords, err := src.LoadKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords: %w", err)
	}

	logger.With(logger.Fields{
		"source":   src.GetSourceID(),
		"pages":    len(items),
		"keywords": len(keywords),
	}).Info(ctx, "Generating embeddings")

	if err := s.embedContent(ctx, items, opts.SkipCache); err != nil {
		return nil, err
	}
	if err := s.embedKeywords(ctx, keywords, opts.SkipCache); err != nil {
		return nil, err
	}

	bundle := &domain.EmbeddingsFile{
		Model:             s.embedder.Model(),
		Dimensions:        s.embedder.Dimensions(),
		ContentEmbeddings: items,
		KeywordEmbeddings: keywords,
	}
	path, err := source.WriteEmbeddings(opts.OutputDir, bundle, s.now())
	if err != nil {
		return nil, err
	}

	stats := &GenerateStats{
		Path:         path,
		ContentCount: len(items),
		KeywordCount: len(keywords),
	}
	if s.indexer != nil {
		if stats.Indexed, err = IndexContent(ctx, s.indexer, items); err != nil {
			return nil, err
		}
	}
	stats.Duration = s.now().Sub(start)

	logger.With(logger.Fields{"path": path}).
		WithDuration(stats.Duration.Milliseconds()).
		Info(ctx, "Embeddings written")
	return stats, nil
}

// embedContent sets the embedding of every page and trims the stored body.
func (s *GenerateService) embedContent(ctx context.Context, items []domain.ContentItem, skipCache bool) error {
	texts := make([]string, len(items))
	for i := range items {
		texts[i] = contentEmbeddingText(&items[i])
	}
	records, err := s.embedder.EmbedBatch(ctx, texts, skipCache)
	if err != nil {
		return fmt.Errorf("failed to embed content: %w", err)
	}
	for i := range items {
		items[i].Embedding = records[i].Embedding
		items[i].Content = truncateRunes(items[i].Content, maxStoredContentRunes)
	}
	return nil
}

func (s *GenerateService) embedKeywords(ctx context.Context, keywords []domain.KeywordItem, skipCache bool) error {
	if len(keywords) == 0 {
		return nil
	}
	texts := make([]string, len(keywords))
	for i := range keywords {
		texts[i] = keywords[i].Keyword
	}
	records, err := s.embedder.EmbedBatch(ctx, texts, skipCache)
	if err != nil {
		return fmt.Errorf("failed to embed keywords: %w", err)
	}
	for i := range keywords {
		keywords[i].Embedding = records[i].Embedding
	}
	return nil
}
