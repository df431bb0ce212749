package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/repository"
	"github.com/timmy/citelens/internal/source"
)

type staticSource struct {
	items    []domain.ContentItem
	keywords []domain.KeywordItem
}

func (s *staticSource) GetSourceID() string { return "static" }

func (s *staticSource) LoadContent(context.Context) ([]domain.ContentItem, error) {
	return s.items, nil
}

func (s *staticSource) LoadKeywords(context.Context) ([]domain.KeywordItem, error) {
	return s.keywords, nil
}

type recordingIndexer struct {
	mu      sync.Mutex
	batches [][]repository.IndexedPage
}

func (r *recordingIndexer) Upsert(_ context.Context, pages []repository.IndexedPage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]repository.IndexedPage(nil), pages...))
	return nil
}

func TestGenerateService_Generate(t *testing.T) {
	long := strings.Repeat("word ", 2000)
	src := &staticSource{
		items: []domain.ContentItem{
			{URL: "/a", Title: "A", Content: "Alpha page", MetaDescription: "about alpha"},
			{URL: "/b", Title: "B", Content: long},
		},
		keywords: []domain.KeywordItem{{Keyword: "alpha"}, {Keyword: "beta"}},
	}
	indexer := &recordingIndexer{}
	svc := NewGenerateService(&fakeEmbedder{}, indexer)
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	dir := t.TempDir()
	stats, err := svc.Generate(context.Background(), src, GenerateOptions{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ContentCount)
	assert.Equal(t, 2, stats.KeywordCount)
	assert.Equal(t, 2, stats.Indexed)
	assert.True(t, strings.HasSuffix(stats.Path, "embeddings_20261018.json"))

	bundle, err := source.ReadEmbeddings(stats.Path)
	require.NoError(t, err)
	assert.Equal(t, "fake-model", bundle.Model)
	assert.Equal(t, fakeDimensions, bundle.Dimensions)
	assert.Equal(t, fakeVector("about alpha\n\nA\n\nAlpha page"), []float32(bundle.ContentEmbeddings[0].Embedding))
	assert.Equal(t, fakeVector("beta"), []float32(bundle.KeywordEmbeddings[1].Embedding))
	assert.Len(t, []rune(bundle.ContentEmbeddings[1].Content), maxStoredContentRunes)

	require.Len(t, indexer.batches, 1)
	assert.Equal(t, "/a", indexer.batches[0][0].Payload.URL)
}

func TestGenerateService_EmptySource(t *testing.T) {
	svc := NewGenerateService(&fakeEmbedder{}, nil)
	_, err := svc.Generate(context.Background(), &staticSource{}, GenerateOptions{OutputDir: t.TempDir()})
	assert.Error(t, err)
}

func TestContentEmbeddingText(t *testing.T) {
	tests := []struct {
		name string
		item domain.ContentItem
		want string
	}{
		{"with meta", domain.ContentItem{Title: "T", Content: "C", MetaDescription: "M"}, "M\n\nT\n\nC"},
		{"without meta", domain.ContentItem{Title: "T", Content: "C"}, "T\n\nC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentEmbeddingText(&tt.item); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	long := domain.ContentItem{Title: "T", Content: strings.Repeat("é", 9000)}
	assert.Len(t, []rune(contentEmbeddingText(&long)), maxEmbeddingRunes)
}
