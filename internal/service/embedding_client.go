package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/logger"
	"github.com/timmy/citelens/internal/repository"
	"github.com/timmy/citelens/internal/vecmath"
)

// ErrMissingAPIKey is returned at construction when the provider has no credentials.
var ErrMissingAPIKey = config.ErrMissingAPIKey

// EmbeddingCache is the vector cache the client reads through.
// Get returns repository.ErrNotFound on a miss.
type EmbeddingCache interface {
	Get(ctx context.Context, text, model string) (*domain.EmbeddingRecord, error)
	Put(ctx context.Context, record *domain.EmbeddingRecord) error
	Stats(ctx context.Context) (*domain.CacheStats, error)
}

// ClientOptions tunes batching and pacing of provider calls.
type ClientOptions struct {
	BatchSize   int
	PacingDelay time.Duration
}

// UsageStats reports what a client has spent since creation or the last reset.
type UsageStats struct {
	APICalls      int64              `json:"api_calls"`
	CacheHits     int64              `json:"cache_hits"`
	TokensUsed    int64              `json:"tokens_used"`
	EstimatedCost string             `json:"estimated_cost"`
	CacheStats    *domain.CacheStats `json:"cache_stats,omitempty"`
}

// EmbeddingClient resolves text to embedding records, reading through the
// cache and sending misses to the provider in paced batches.
type EmbeddingClient struct {
	provider    EmbeddingProvider
	cache       EmbeddingCache
	batchSize   int
	pacingDelay time.Duration

	mu         sync.Mutex
	apiCalls   int64
	cacheHits  int64
	tokensUsed int64
}

// NewEmbeddingClient builds the provider from cfg and fronts it with cache.
// Parameters:
//   - cfg: embedding configuration; defaults are applied in place.
//   - cache: vector cache, or nil to disable caching.
// Returns:
//   - *EmbeddingClient: ready client.
//   - error: ErrMissingAPIKey when no credentials are configured, or a validation error.
func NewEmbeddingClient(cfg *config.EmbeddingConfig, cache EmbeddingCache) (*EmbeddingClient, error) {
	cfg.ApplyDefaults()
	if err := cfg.ValidateWithAPIKey(); err != nil {
		return nil, err
	}
	provider, err := NewEmbeddingProvider(ProviderConfigFrom(cfg))
	if err != nil {
		return nil, err
	}
	if !cfg.CacheEnabled {
		cache = nil
	}
	return NewEmbeddingClientWithProvider(provider, cache, ClientOptions{
		BatchSize:   cfg.BatchSize,
		PacingDelay: cfg.PacingDelay,
	}), nil
}

// NewEmbeddingClientWithProvider creates a client around an existing provider.
func NewEmbeddingClientWithProvider(provider EmbeddingProvider, cache EmbeddingCache, opts ClientOptions) *EmbeddingClient {
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultEmbeddingBatchSize
	}
	if opts.PacingDelay < 0 {
		opts.PacingDelay = 0
	}
	return &EmbeddingClient{
		provider:    provider,
		cache:       cache,
		batchSize:   opts.BatchSize,
		pacingDelay: opts.PacingDelay,
	}
}

// Model returns the model the client embeds with.
func (c *EmbeddingClient) Model() string {
	return c.provider.GetModel()
}

// Dimensions returns the vector size the provider was asked for.
func (c *EmbeddingClient) Dimensions() int {
	return c.provider.GetDimensions()
}

// lookup returns the cached record for text, or nil on a miss.
func (c *EmbeddingClient) lookup(ctx context.Context, text string) (*domain.EmbeddingRecord, error) {
	record, err := c.cache.Get(ctx, text, c.Model())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Embed returns the embedding of one text, calling the provider only on a cache miss
// or when skipCache is set.
func (c *EmbeddingClient) Embed(ctx context.Context, text string, skipCache bool) (*domain.EmbeddingRecord, error) {
	records, err := c.EmbedBatch(ctx, []string{text}, skipCache)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// EmbedBatch returns one record per text, in the order of texts.
// Cache hits are resolved first; the rest go to the provider in batches of at
// most BatchSize, with PacingDelay between consecutive calls. A text repeated
// in texts is sent to the provider once.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string, skipCache bool) ([]*domain.EmbeddingRecord, error) {
	results := make([]*domain.EmbeddingRecord, len(texts))
	pending := make([]int, 0, len(texts))
	// first pending index of a text -> later indices of the same text
	repeats := make(map[int][]int)
	firstPending := make(map[string]int)

	hits := 0
	for i, text := range texts {
		if c.cache != nil && !skipCache {
			record, err := c.lookup(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("failed to read embedding cache: %w", err)
			}
			if record != nil {
				results[i] = record
				hits++
				continue
			}
		}
		if first, ok := firstPending[text]; ok {
			repeats[first] = append(repeats[first], i)
			continue
		}
		firstPending[text] = i
		pending = append(pending, i)
	}
	c.addUsage(0, int64(hits), 0)

	if len(pending) == 0 {
		return results, nil
	}
	logger.CtxInfo(ctx, "Cache hits: %d, provider texts: %d", hits, len(pending))

	numBatches := (len(pending) + c.batchSize - 1) / c.batchSize
	for b := 0; b < numBatches; b++ {
		start := b * c.batchSize
		end := min(start+c.batchSize, len(pending))
		indices := pending[start:end]

		batch := make([]string, len(indices))
		for j, idx := range indices {
			batch[j] = texts[idx]
		}

		logger.With(logger.Fields{logger.FieldBatch: b + 1}).WithCount(len(batch)).
			Debug(ctx, "Processing batch %d/%d", b+1, numBatches)

		records, err := c.callProvider(ctx, batch)
		if err != nil {
			return nil, err
		}
		for j, idx := range indices {
			results[idx] = records[j]
			for _, dup := range repeats[idx] {
				copied := *records[j]
				results[dup] = &copied
			}
		}

		if end < len(pending) && c.pacingDelay > 0 {
			if err := sleepCtx(ctx, c.pacingDelay); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

// callProvider embeds one batch and stores the results in the cache.
// The call's token usage is split evenly across its texts.
func (c *EmbeddingClient) callProvider(ctx context.Context, batch []string) ([]*domain.EmbeddingRecord, error) {
	res, err := c.provider.EmbedBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(res.Vectors) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderResponse, len(res.Vectors), len(batch))
	}
	c.addUsage(1, 0, int64(res.TotalTokens))

	share := res.TotalTokens / len(batch)
	records := make([]*domain.EmbeddingRecord, len(batch))
	for i, text := range batch {
		tokens := share
		records[i] = domain.NewEmbeddingRecord(text, res.Vectors[i], c.Model(), &tokens)
		if c.cache != nil {
			if err := c.cache.Put(ctx, records[i]); err != nil {
				return nil, fmt.Errorf("failed to write embedding cache: %w", err)
			}
		}
	}
	return records, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *EmbeddingClient) addUsage(calls, hits, tokens int64) {
	c.mu.Lock()
	c.apiCalls += calls
	c.cacheHits += hits
	c.tokensUsed += tokens
	c.mu.Unlock()
}

// Usage returns the usage counters, including cache statistics when caching is on.
func (c *EmbeddingClient) Usage(ctx context.Context) (*UsageStats, error) {
	c.mu.Lock()
	stats := &UsageStats{
		APICalls:      c.apiCalls,
		CacheHits:     c.cacheHits,
		TokensUsed:    c.tokensUsed,
		EstimatedCost: fmt.Sprintf("$%.6f", float64(c.tokensUsed)*domain.CostPerToken),
	}
	c.mu.Unlock()

	if c.cache != nil {
		cacheStats, err := c.cache.Stats(ctx)
		if err != nil {
			return nil, err
		}
		stats.CacheStats = cacheStats
	}
	return stats, nil
}

// ResetUsage zeroes the usage counters.
func (c *EmbeddingClient) ResetUsage() {
	c.mu.Lock()
	c.apiCalls, c.cacheHits, c.tokensUsed = 0, 0, 0
	c.mu.Unlock()
}

// Similarity returns the cosine similarity of a and b, 0 for a zero vector.
func (c *EmbeddingClient) Similarity(a, b []float32) float64 {
	return vecmath.Cosine(a, b)
}

// MostSimilar ranks candidates by similarity to query, best first, at most topK.
func (c *EmbeddingClient) MostSimilar(query []float32, candidates [][]float32, topK int) []vecmath.Match {
	return vecmath.MostSimilar(query, candidates, topK)
}
