package domain

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// Vector is a fixed-length embedding stored as a JSON array in the database.
type Vector []float32

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the vector.
//   - error: non-nil if marshaling fails.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Vector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, (*[]float32)(v))
}

// CostPerToken is the provider price of one token for the default model, in USD.
const CostPerToken = 0.00000013

// ContentHash returns the hex SHA-256 digest of text, the cache key for embeddings.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbeddingRecord is a cached embedding keyed by (content hash, model).
type EmbeddingRecord struct {
	ContentHash string    `gorm:"type:text;primaryKey" json:"content_hash"`
	Model       string    `gorm:"type:text;primaryKey;index:idx_embeddings_model" json:"model"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Embedding   Vector    `gorm:"type:text;not null" json:"embedding"`
	Dimensions  int       `gorm:"not null" json:"dimensions"`
	TokenCount  *int      `json:"token_count,omitempty"`
	CreatedAt   time.Time `gorm:"index:idx_embeddings_created_at" json:"created_at"`
	AccessedAt  time.Time `gorm:"column:accessed_at;index:idx_embeddings_accessed_at" json:"accessed_at"`
	AccessCount int       `gorm:"default:1" json:"access_count"`
}

// TableName returns the database table name for EmbeddingRecord.
func (EmbeddingRecord) TableName() string {
	return "embeddings"
}

// NewEmbeddingRecord builds a record for text, filling in the content hash and dimensions.
// Parameters:
//   - text: source text the vector was computed from.
//   - vector: embedding returned by the provider.
//   - model: model name that produced the vector.
//   - tokenCount: tokens attributed to this text, nil when unknown.
// Returns:
//   - *EmbeddingRecord: record ready to be stored.
func NewEmbeddingRecord(text string, vector []float32, model string, tokenCount *int) *EmbeddingRecord {
	now := time.Now()
	return &EmbeddingRecord{
		ContentHash: ContentHash(text),
		Model:       model,
		Text:        text,
		Embedding:   Vector(vector),
		Dimensions:  len(vector),
		TokenCount:  tokenCount,
		CreatedAt:   now,
		AccessedAt:  now,
		AccessCount: 1,
	}
}

// CacheStats summarises the contents of the embedding cache.
type CacheStats struct {
	TotalRecords       int64            `json:"total_embeddings"`
	DistinctModels     int64            `json:"unique_models"`
	TotalTokensCached  int64            `json:"total_tokens_cached"`
	TotalCacheHits     int64            `json:"total_cache_hits"`
	PerModelCounts     map[string]int64 `json:"embeddings_by_model"`
	EstimatedCostSaved float64          `json:"estimated_cost_saved"`
}
