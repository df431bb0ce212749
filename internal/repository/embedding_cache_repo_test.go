package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// newFileTestDB opens a sqlite file so several pooled connections can
// contend for the same rows.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "cache.db"),
		MaxOpenConns: 4,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func intPtr(v int) *int { return &v }

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewEmbeddingCacheRepository(newTestDB(t))

	record := domain.NewEmbeddingRecord("hello world", []float32{0.1, 0.2, 0.3}, "m1", intPtr(4))
	require.NoError(t, repo.Put(ctx, record))

	got, err := repo.Get(ctx, "hello world", "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Text)
	assert.Equal(t, domain.Vector{0.1, 0.2, 0.3}, got.Embedding)
	assert.Equal(t, 3, got.Dimensions)
	require.NotNil(t, got.TokenCount)
	assert.Equal(t, 4, *got.TokenCount)
	assert.Equal(t, domain.ContentHash("hello world"), got.ContentHash)
}

func TestEmbeddingCache_MissAndModelIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewEmbeddingCacheRepository(newTestDB(t))

	_, err := repo.Get(ctx, "absent", "m1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("same text", []float32{1, 0}, "m1", nil)))
	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("same text", []float32{0, 1}, "m2", nil)))

	a, err := repo.Get(ctx, "same text", "m1")
	require.NoError(t, err)
	b, err := repo.Get(ctx, "same text", "m2")
	require.NoError(t, err)
	assert.Equal(t, domain.Vector{1, 0}, a.Embedding)
	assert.Equal(t, domain.Vector{0, 1}, b.Embedding)

	_, err = repo.Get(ctx, "same text", "m3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmbeddingCache_AccessCounting(t *testing.T) {
	ctx := context.Background()
	repo := NewEmbeddingCacheRepository(newTestDB(t))

	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("counted", []float32{1}, "m1", nil)))

	var last *domain.EmbeddingRecord
	for i := 0; i < 3; i++ {
		rec, err := repo.Get(ctx, "counted", "m1")
		require.NoError(t, err)
		last = rec
	}
	if last.AccessCount != 4 {
		t.Errorf("expected access count 4 after 3 gets, got %d", last.AccessCount)
	}

	exists, err := repo.Exists(ctx, "counted", "m1")
	require.NoError(t, err)
	assert.True(t, exists)

	rec, err := repo.Get(ctx, "counted", "m1")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.AccessCount, "exists must not change access statistics")
}

func TestEmbeddingCache_PutOverwritesAndIncrements(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewEmbeddingCacheRepository(db)

	first := domain.NewEmbeddingRecord("dup", []float32{1, 1}, "m1", nil)
	require.NoError(t, repo.Put(ctx, first))
	assert.Equal(t, 1, first.AccessCount)

	second := domain.NewEmbeddingRecord("dup", []float32{2, 2}, "m1", nil)
	require.NoError(t, repo.Put(ctx, second))
	assert.Equal(t, 2, second.AccessCount, "Put should report the stored count")

	var rows []domain.EmbeddingRecord
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Vector{2, 2}, rows[0].Embedding)
	assert.Equal(t, 2, rows[0].AccessCount)
}

func TestEmbeddingCache_Batch(t *testing.T) {
	ctx := context.Background()
	repo := NewEmbeddingCacheRepository(newTestDB(t))

	require.NoError(t, repo.PutBatch(ctx, []*domain.EmbeddingRecord{
		domain.NewEmbeddingRecord("a", []float32{1}, "m1", nil),
		domain.NewEmbeddingRecord("c", []float32{3}, "m1", nil),
	}))

	got, err := repo.GetBatch(ctx, []string{"a", "b", "c"}, "m1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Text)
	assert.Nil(t, got[1])
	assert.Equal(t, "c", got[2].Text)
}

func TestEmbeddingCache_Stats(t *testing.T) {
	ctx := context.Background()
	repo := NewEmbeddingCacheRepository(newTestDB(t))

	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("one", []float32{1}, "m1", intPtr(100))))
	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("two", []float32{1}, "m1", intPtr(50))))
	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("three", []float32{1}, "m2", nil)))
	_, err := repo.Get(ctx, "one", "m1")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "one", "m1")
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRecords)
	assert.Equal(t, int64(2), stats.DistinctModels)
	assert.Equal(t, int64(150), stats.TotalTokensCached)
	assert.Equal(t, int64(2), stats.TotalCacheHits)
	assert.Equal(t, map[string]int64{"m1": 2, "m2": 1}, stats.PerModelCounts)
	assert.InDelta(t, 150*domain.CostPerToken, stats.EstimatedCostSaved, 1e-12)
}

func TestEmbeddingCache_StatsEmpty(t *testing.T) {
	repo := NewEmbeddingCacheRepository(newTestDB(t))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRecords)
	assert.Equal(t, int64(0), stats.TotalCacheHits)
	assert.Empty(t, stats.PerModelCounts)
}

func TestEmbeddingCache_Clear(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		expected int64
		remain   int64
	}{
		{name: "single model", model: "m1", expected: 2, remain: 1},
		{name: "all models", model: "", expected: 3, remain: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewEmbeddingCacheRepository(newTestDB(t))
			require.NoError(t, repo.PutBatch(ctx, []*domain.EmbeddingRecord{
				domain.NewEmbeddingRecord("x", []float32{1}, "m1", nil),
				domain.NewEmbeddingRecord("y", []float32{1}, "m1", nil),
				domain.NewEmbeddingRecord("z", []float32{1}, "m2", nil),
			}))

			deleted, err := repo.Clear(ctx, tt.model)
			require.NoError(t, err)
			if deleted != tt.expected {
				t.Errorf("expected %d deleted, got %d", tt.expected, deleted)
			}
			stats, err := repo.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.remain, stats.TotalRecords)
		})
	}
}

func TestEmbeddingCache_Prune(t *testing.T) {
	ctx := context.Background()
	repo := NewEmbeddingCacheRepository(newTestDB(t))

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("old", []float32{1}, "m1", nil)))

	repo.now = func() time.Time { return base.AddDate(0, 0, 20) }
	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("recent", []float32{1}, "m1", nil)))

	repo.now = func() time.Time { return base.AddDate(0, 0, 40) }
	deleted, err := repo.Prune(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	exists, err := repo.Exists(ctx, "recent", "m1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, "old", "m1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEmbeddingCache_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	db := newFileTestDB(t)
	repo := NewEmbeddingCacheRepository(db)

	require.NoError(t, repo.Put(ctx, domain.NewEmbeddingRecord("shared", []float32{0, 0, 0}, "m1", nil)))

	const writers, readers = 10, 10
	errs := make(chan error, writers+readers)
	var wg sync.WaitGroup
	for i := 0; i < writers+readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				v := float32(i)
				errs <- repo.Put(ctx, domain.NewEmbeddingRecord("shared", []float32{v, v, v}, "m1", intPtr(i)))
				return
			}
			_, err := repo.Get(ctx, "shared", "m1")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rows []domain.EmbeddingRecord
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, 3, row.Dimensions)
	require.Len(t, row.Embedding, 3)
	if row.Embedding[0] != row.Embedding[1] || row.Embedding[1] != row.Embedding[2] {
		t.Errorf("expected a vector from a single write, got %v", row.Embedding)
	}
	assert.Equal(t, 1+writers+readers, row.AccessCount)

	exists, err := repo.Exists(ctx, "shared", "m1")
	require.NoError(t, err)
	assert.True(t, exists)
}
