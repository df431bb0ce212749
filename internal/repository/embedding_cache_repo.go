package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/citelens/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmbeddingCacheRepository is the content-addressed vector cache.
// Records are keyed by (content_hash, model).
type EmbeddingCacheRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEmbeddingCacheRepository creates a new EmbeddingCacheRepository.
// Parameters:
//   - db: GORM database handle with the embeddings table migrated.
// Returns:
//   - *EmbeddingCacheRepository: repository instance bound to db.
func NewEmbeddingCacheRepository(db *gorm.DB) *EmbeddingCacheRepository {
	return &EmbeddingCacheRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the record cached for text under model and records the access.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: source text; it is hashed to form the key.
//   - model: embedding model; a record for another model is never returned.
// Returns:
//   - *domain.EmbeddingRecord: the stored record with updated access bookkeeping.
//   - error: ErrNotFound on a miss, or the storage error.
func (r *EmbeddingCacheRepository) Get(ctx context.Context, text, model string) (*domain.EmbeddingRecord, error) {
	hash := domain.ContentHash(text)
	var record domain.EmbeddingRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_hash = ? AND model = ?", hash, model).First(&record).Error; err != nil {
			return err
		}
		now := r.now()
		if err := tx.Model(&domain.EmbeddingRecord{}).
			Where("content_hash = ? AND model = ?", hash, model).
			Updates(map[string]interface{}{
				"accessed_at":  now,
				"access_count": gorm.Expr("access_count + 1"),
			}).Error; err != nil {
			return err
		}
		record.AccessedAt = now
		record.AccessCount++
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached embedding: %w", err)
	}
	return &record, nil
}

// Put upserts record. A record already stored under the same key has its
// vector and metadata replaced while its access count is incremented.
// record.AccessCount is set to the stored count after the write.
func (r *EmbeddingCacheRepository) Put(ctx context.Context, record *domain.EmbeddingRecord) error {
	if record.ContentHash == "" {
		record.ContentHash = domain.ContentHash(record.Text)
	}
	if record.Dimensions == 0 {
		record.Dimensions = len(record.Embedding)
	}
	now := r.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.AccessedAt = now
	record.AccessCount = 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "content_hash"}, {Name: "model"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"text":         record.Text,
				"embedding":    record.Embedding,
				"dimensions":   record.Dimensions,
				"token_count":  record.TokenCount,
				"created_at":   record.CreatedAt,
				"accessed_at":  now,
				"access_count": gorm.Expr("embeddings.access_count + 1"),
			}),
		}).Create(record).Error; err != nil {
			return err
		}
		var stored domain.EmbeddingRecord
		if err := tx.Select("access_count").
			Where("content_hash = ? AND model = ?", record.ContentHash, record.Model).
			First(&stored).Error; err != nil {
			return err
		}
		record.AccessCount = stored.AccessCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Exists reports whether text is cached under model without touching access statistics.
func (r *EmbeddingCacheRepository) Exists(ctx context.Context, text, model string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.EmbeddingRecord{}).
		Where("content_hash = ? AND model = ?", domain.ContentHash(text), model).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check cached embedding: %w", err)
	}
	return count > 0, nil
}

// GetBatch applies Get to each text. The result is aligned with texts; misses are nil.
func (r *EmbeddingCacheRepository) GetBatch(ctx context.Context, texts []string, model string) ([]*domain.EmbeddingRecord, error) {
	records := make([]*domain.EmbeddingRecord, len(texts))
	for i, text := range texts {
		record, err := r.Get(ctx, text, model)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records[i] = record
	}
	return records, nil
}

// PutBatch applies Put to each record in order, stopping at the first failure.
func (r *EmbeddingCacheRepository) PutBatch(ctx context.Context, records []*domain.EmbeddingRecord) error {
	for _, record := range records {
		if err := r.Put(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

type modelCount struct {
	Model string
	Count int64
}

// Stats aggregates the cache contents.
func (r *EmbeddingCacheRepository) Stats(ctx context.Context) (*domain.CacheStats, error) {
	db := r.db.WithContext(ctx).Model(&domain.EmbeddingRecord{})

	var totals struct {
		Total    int64
		Models   int64
		Tokens   int64
		Accesses int64
	}
	if err := db.Select(
		"COUNT(*) AS total, COUNT(DISTINCT model) AS models, " +
			"COALESCE(SUM(token_count), 0) AS tokens, COALESCE(SUM(access_count), 0) AS accesses",
	).Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate cache stats: %w", err)
	}

	var perModel []modelCount
	if err := r.db.WithContext(ctx).Model(&domain.EmbeddingRecord{}).
		Select("model, COUNT(*) AS count").
		Group("model").
		Scan(&perModel).Error; err != nil {
		return nil, fmt.Errorf("failed to count cache records by model: %w", err)
	}

	stats := &domain.CacheStats{
		TotalRecords:       totals.Total,
		DistinctModels:     totals.Models,
		TotalTokensCached:  totals.Tokens,
		TotalCacheHits:     totals.Accesses - totals.Total,
		PerModelCounts:     make(map[string]int64, len(perModel)),
		EstimatedCostSaved: float64(totals.Tokens) * domain.CostPerToken,
	}
	for _, mc := range perModel {
		stats.PerModelCounts[mc.Model] = mc.Count
	}
	return stats, nil
}

// Clear deletes every record, or only those of model when it is non-empty.
// Returns the number of records deleted.
func (r *EmbeddingCacheRepository) Clear(ctx context.Context, model string) (int64, error) {
	query := r.db.WithContext(ctx)
	if model != "" {
		query = query.Where("model = ?", model)
	} else {
		query = query.Where("1 = 1")
	}
	result := query.Delete(&domain.EmbeddingRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Prune deletes records not accessed within the last days days.
// Returns the number of records deleted.
func (r *EmbeddingCacheRepository) Prune(ctx context.Context, days int) (int64, error) {
	cutoff := r.now().AddDate(0, 0, -days)
	result := r.db.WithContext(ctx).
		Where("accessed_at < ?", cutoff).
		Delete(&domain.EmbeddingRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", result.Error)
	}
	return result.RowsAffected, nil
}
