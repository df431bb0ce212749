package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  driver: sqlite
  path: ` + filepath.Join(dir, "cache.db") + `
embedding:
  provider: jina
  model: jina-embeddings-v3
  dimensions: 1024
  pacing_delay: 250ms
analysis:
  skip: [rag, Citations]
chunking:
  target_size: 256
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "jina", cfg.Embedding.Provider)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.PacingDelay)
	assert.Equal(t, DefaultEmbeddingBatchSize, cfg.Embedding.BatchSize)
	assert.Equal(t, 256, cfg.Chunking.TargetSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.True(t, cfg.Chunking.RespectBoundaries)
	assert.Equal(t, 0.4, cfg.Analysis.CompletenessThreshold)
	assert.True(t, cfg.Analysis.Skips("citations"))
	assert.True(t, cfg.Analysis.Skips("rag"))
	assert.False(t, cfg.Analysis.Skips("clustering"))
	assert.Equal(t, filepath.Join(dir, "cache.db"), cfg.Database.DSN())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", URL: "postgres://u:p@localhost/db", Path: "ignored.db"}
	lite := DatabaseConfig{Driver: "sqlite", Path: "./data/cache.db"}

	if got := pg.DSN(); got != "postgres://u:p@localhost/db" {
		t.Errorf("expected postgres url, got %s", got)
	}
	if got := lite.DSN(); got != "./data/cache.db" {
		t.Errorf("expected sqlite path, got %s", got)
	}
}

func TestEmbeddingConfig_Validate(t *testing.T) {
	valid := func() EmbeddingConfig {
		c := EmbeddingConfig{APIKey: "sk-test"}
		c.ApplyDefaults()
		return c
	}

	testCases := []struct {
		name    string
		mutate  func(*EmbeddingConfig)
		wantErr bool
		missing bool
	}{
		{name: "defaults are valid", mutate: func(*EmbeddingConfig) {}},
		{name: "unknown provider", mutate: func(c *EmbeddingConfig) { c.Provider = "cohere" }, wantErr: true},
		{name: "compatible without base url", mutate: func(c *EmbeddingConfig) { c.Provider = "openai-compatible" }, wantErr: true},
		{name: "compatible with base url", mutate: func(c *EmbeddingConfig) {
			c.Provider = "openai-compatible"
			c.BaseURL = "http://localhost:11434/v1"
		}},
		{name: "zero dimensions", mutate: func(c *EmbeddingConfig) { c.Dimensions = 0 }, wantErr: true},
		{name: "missing api key", mutate: func(c *EmbeddingConfig) { c.APIKey = "" }, wantErr: true, missing: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.ValidateWithAPIKey()
			if tc.wantErr && err == nil {
				t.Fatalf("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tc.missing != errors.Is(err, ErrMissingAPIKey) {
				t.Errorf("expected ErrMissingAPIKey=%v, got %v", tc.missing, err)
			}
		})
	}
}

func TestEmbeddingConfig_ResolveEnvVars(t *testing.T) {
	t.Setenv("CITELENS_TEST_KEY", "from-env")

	c := EmbeddingConfig{APIKeyEnv: "CITELENS_TEST_KEY"}
	c.ResolveEnvVars()
	assert.Equal(t, "from-env", c.APIKey)

	direct := EmbeddingConfig{APIKey: "direct", APIKeyEnv: "CITELENS_TEST_KEY"}
	direct.ResolveEnvVars()
	assert.Equal(t, "direct", direct.APIKey)
}
