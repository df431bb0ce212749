package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/repository"
)

type fakeSearcher struct {
	results []repository.SearchResult
	topK    int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, topK int, _ string) ([]repository.SearchResult, error) {
	f.topK = topK
	return f.results, nil
}

func TestIndexRetriever(t *testing.T) {
	searcher := &fakeSearcher{results: []repository.SearchResult{
		{Score: 0.9, Payload: repository.ContentPayload{URL: "/a"}},
		{Score: 0.5, Payload: repository.ContentPayload{URL: "/b"}},
	}}
	retrieve := IndexRetriever(searcher)

	got, err := retrieve(context.Background(), []float32{1}, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, searcher.topK)
	require.Len(t, got, 2)
	assert.Equal(t, "/a", got[0].Name)
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)
}

func TestIndexContent_Batches(t *testing.T) {
	var items []domain.ContentItem
	for i := 0; i < defaultIndexBatchSize+5; i++ {
		items = append(items, domain.ContentItem{URL: fmt.Sprintf("/p%d", i), Embedding: fakeVector(fmt.Sprint(i))})
	}
	items = append(items, domain.ContentItem{URL: "/no-vector"})

	indexer := &recordingIndexer{}
	n, err := IndexContent(context.Background(), indexer, items)
	require.NoError(t, err)

	assert.Equal(t, defaultIndexBatchSize+5, n)
	require.Len(t, indexer.batches, 2)
	assert.Len(t, indexer.batches[0], defaultIndexBatchSize)
	assert.Len(t, indexer.batches[1], 5)
}
