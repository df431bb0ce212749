package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	DefaultEmbeddingProvider   = "openai"
	DefaultEmbeddingModel      = "text-embedding-3-large"
	DefaultEmbeddingDimensions = 3072
	DefaultEmbeddingBatchSize  = 100
	DefaultPacingDelay         = 100 * time.Millisecond
)

// ErrMissingAPIKey is returned when an embedding provider has no credentials.
var ErrMissingAPIKey = errors.New("embedding api key is required")

// EmbeddingConfig configures the embedding provider and the acquisition client in front of it.
type EmbeddingConfig struct {
	Provider          string        `mapstructure:"provider"`     // "openai", "openai-compatible" or "jina"
	Model             string        `mapstructure:"model"`        // Model name/ID
	APIKey            string        `mapstructure:"api_key"`      // API key (can be set directly or via env var)
	APIKeyEnv         string        `mapstructure:"api_key_env"`  // Environment variable name for API key
	BaseURL           string        `mapstructure:"base_url"`     // Base URL override
	BaseURLEnv        string        `mapstructure:"base_url_env"` // Environment variable name for base URL
	Dimensions        int           `mapstructure:"dimensions"`
	Task              string        `mapstructure:"task"` // Jina task, e.g. retrieval.passage
	BatchSize         int           `mapstructure:"batch_size"`
	PacingDelay       time.Duration `mapstructure:"pacing_delay"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryCount        int           `mapstructure:"retry_count"`
	CacheEnabled      bool          `mapstructure:"cache_enabled"`
}

// ResolveEnvVars resolves environment variable references in the configuration.
// Direct values (APIKey, BaseURL) take precedence if already set.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
	if c.BaseURLEnv != "" && c.BaseURL == "" {
		if val := os.Getenv(c.BaseURLEnv); val != "" {
			c.BaseURL = val
		}
	}
}

// ApplyDefaults fills zero fields with the package defaults.
func (c *EmbeddingConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultEmbeddingProvider
	}
	if c.Model == "" {
		c.Model = DefaultEmbeddingModel
	}
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultEmbeddingDimensions
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultEmbeddingBatchSize
	}
	if c.PacingDelay < 0 {
		c.PacingDelay = DefaultPacingDelay
	}
}

// Validate checks that the embedding configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("embedding: provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding %q: model is required", c.Provider)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding %q: dimensions must be positive", c.Model)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("embedding %q: batch_size must be positive", c.Model)
	}

	switch c.Provider {
	case "openai", "jina":
	case "openai-compatible":
		if c.BaseURL == "" {
			return fmt.Errorf("embedding %q: base_url is required for openai-compatible providers", c.Model)
		}
	default:
		return fmt.Errorf("embedding %q: unknown provider %q", c.Model, c.Provider)
	}

	return nil
}

// ValidateWithAPIKey validates the configuration including API key requirement.
// Use this when the embedding will actually be used (not just configured).
func (c *EmbeddingConfig) ValidateWithAPIKey() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: set embedding.api_key or %s", ErrMissingAPIKey, c.APIKeyEnv)
	}
	return nil
}
