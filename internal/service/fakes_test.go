package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/repository"
)

const fakeDimensions = 8

// fakeVector derives a stable vector from text.
func fakeVector(text string) []float32 {
	v := make([]float32, fakeDimensions)
	for i := range v {
		h := fnv.New32a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		v[i] = float32(h.Sum32()%2001)/1000 - 1
	}
	return v
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    [][]string
	tokens   int
	err      error
	vectorFn func(string) []float32
}

func (p *fakeProvider) EmbedBatch(_ context.Context, texts []string) (*ProviderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]string(nil), texts...))
	if p.err != nil {
		return nil, p.err
	}
	fn := p.vectorFn
	if fn == nil {
		fn = fakeVector
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = fn(t)
	}
	return &ProviderResult{Vectors: vectors, TotalTokens: p.tokens}, nil
}

func (p *fakeProvider) GetModel() string   { return "fake-model" }
func (p *fakeProvider) GetDimensions() int { return fakeDimensions }

type memoryCache struct {
	mu      sync.Mutex
	records map[string]*domain.EmbeddingRecord
}

func newMemoryCache() *memoryCache {
	return &memoryCache{records: make(map[string]*domain.EmbeddingRecord)}
}

func (c *memoryCache) key(text, model string) string {
	return domain.ContentHash(text) + "|" + model
}

func (c *memoryCache) Get(_ context.Context, text, model string) (*domain.EmbeddingRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[c.key(text, model)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.AccessCount++
	return r, nil
}

func (c *memoryCache) Put(_ context.Context, r *domain.EmbeddingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[c.key(r.Text, r.Model)] = r
	return nil
}

func (c *memoryCache) Stats(_ context.Context) (*domain.CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &domain.CacheStats{TotalRecords: int64(len(c.records))}, nil
}

// fakeEmbedder embeds without a cache or provider.
type fakeEmbedder struct {
	mu    sync.Mutex
	texts int
	err   error
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string, _ bool) ([]*domain.EmbeddingRecord, error) {
	e.mu.Lock()
	e.texts += len(texts)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([]*domain.EmbeddingRecord, len(texts))
	for i, t := range texts {
		out[i] = domain.NewEmbeddingRecord(t, fakeVector(t), "fake-model", nil)
	}
	return out, nil
}

func (e *fakeEmbedder) Model() string   { return "fake-model" }
func (e *fakeEmbedder) Dimensions() int { return fakeDimensions }

var errFake = errors.New("fake failure")
