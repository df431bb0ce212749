package service

import (
	"context"
	"fmt"

	"github.com/timmy/citelens/internal/analysis"
	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/logger"
	"github.com/timmy/citelens/internal/repository"
)

const defaultIndexBatchSize = 64

// SiteSearcher is the read side of the site index.
type SiteSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, contentType string) ([]repository.SearchResult, error)
}

// SiteIndexer is the write side of the site index.
type SiteIndexer interface {
	Upsert(ctx context.Context, pages []repository.IndexedPage) error
}

// IndexRetriever adapts the site index to an analysis.Retriever. Results are
// named by page URL.
func IndexRetriever(index SiteSearcher) analysis.Retriever {
	return func(ctx context.Context, query []float32, topK int) ([]analysis.NamedScore, error) {
		hits, err := index.Search(ctx, query, topK, "")
		if err != nil {
			return nil, err
		}
		out := make([]analysis.NamedScore, len(hits))
		for i, h := range hits {
			out[i] = analysis.NamedScore{Name: h.Payload.URL, Score: float64(h.Score)}
		}
		return out, nil
	}
}

// IndexContent upserts every embedded page into the site index in batches.
// Pages without an embedding are skipped.
// Returns the number of pages indexed.
func IndexContent(ctx context.Context, index SiteIndexer, items []domain.ContentItem) (int, error) {
	batch := make([]repository.IndexedPage, 0, defaultIndexBatchSize)
	indexed := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := index.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("failed to index pages: %w", err)
		}
		indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	for i := range items {
		item := &items[i]
		if len(item.Embedding) == 0 {
			continue
		}
		batch = append(batch, repository.IndexedPage{
			Vector: item.Embedding,
			Payload: repository.ContentPayload{
				URL:         item.URL,
				Title:       item.Title,
				ContentType: item.ContentType,
				WordCount:   item.WordCount,
			},
		})
		if len(batch) == defaultIndexBatchSize {
			if err := flush(); err != nil {
				return indexed, err
			}
		}
	}
	if err := flush(); err != nil {
		return indexed, err
	}

	logger.With(logger.Fields{logger.FieldCount: indexed}).Info(ctx, "Site index updated")
	return indexed, nil
}
