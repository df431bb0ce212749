package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	References ReferencesConfig `mapstructure:"references"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the cache and run store. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// StorageConfig configures S3-compatible object storage for report uploads.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

// AnalysisConfig holds the thresholds and switches of an analysis run.
type AnalysisConfig struct {
	Workers               int      `mapstructure:"workers"`
	OutputDir             string   `mapstructure:"output_dir"`
	Upload                bool     `mapstructure:"upload"`
	Skip                  []string `mapstructure:"skip"`
	ClusterMethod         string   `mapstructure:"cluster_method"`
	NumClusters           int      `mapstructure:"num_clusters"`
	DistanceThreshold     float64  `mapstructure:"distance_threshold"`
	OutlierThreshold      float64  `mapstructure:"outlier_threshold"`
	CompletenessThreshold float64  `mapstructure:"completeness_threshold"`
	RedundancyThreshold   float64  `mapstructure:"redundancy_threshold"`
	AnswerThreshold       float64  `mapstructure:"answer_threshold"`
	EntityThreshold       float64  `mapstructure:"entity_threshold"`
	EntityGapThreshold    float64  `mapstructure:"entity_gap_threshold"`
	RetrievalThreshold    float64  `mapstructure:"retrieval_threshold"`
	RetrievalGapThreshold float64  `mapstructure:"retrieval_gap_threshold"`
	CitationTarget        float64  `mapstructure:"citation_target"`
}

// Skips reports whether the named analysis is switched off.
func (c *AnalysisConfig) Skips(name string) bool {
	for _, s := range c.Skip {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

type ChunkingConfig struct {
	TargetSize        int  `mapstructure:"target_size"`
	Overlap           int  `mapstructure:"overlap"`
	RespectBoundaries bool `mapstructure:"respect_boundaries"`
	EmbedChunks       bool `mapstructure:"embed_chunks"`
}

// ReferencesConfig points at the YAML file holding reference sets and rule tables.
// An empty path selects the built-in defaults.
type ReferencesConfig struct {
	Path string `mapstructure:"path"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.region", "S3_REGION")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")
	v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Embedding.ResolveEnvVars()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/embedding_cache.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "site_content")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "citelens-reports")
	v.SetDefault("storage.prefix", "reports")

	v.SetDefault("embedding.provider", DefaultEmbeddingProvider)
	v.SetDefault("embedding.model", DefaultEmbeddingModel)
	v.SetDefault("embedding.dimensions", DefaultEmbeddingDimensions)
	v.SetDefault("embedding.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("embedding.batch_size", DefaultEmbeddingBatchSize)
	v.SetDefault("embedding.pacing_delay", DefaultPacingDelay)
	v.SetDefault("embedding.requests_per_minute", 0)
	v.SetDefault("embedding.timeout", 60*time.Second)
	v.SetDefault("embedding.retry_count", 3)
	v.SetDefault("embedding.cache_enabled", true)

	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.output_dir", "./data/reports")
	v.SetDefault("analysis.cluster_method", "hierarchical")
	v.SetDefault("analysis.distance_threshold", 0.3)
	v.SetDefault("analysis.outlier_threshold", 0.3)
	v.SetDefault("analysis.completeness_threshold", 0.4)
	v.SetDefault("analysis.redundancy_threshold", 0.85)
	v.SetDefault("analysis.answer_threshold", 0.5)
	v.SetDefault("analysis.entity_threshold", 0.45)
	v.SetDefault("analysis.entity_gap_threshold", 0.5)
	v.SetDefault("analysis.retrieval_threshold", 0.5)
	v.SetDefault("analysis.retrieval_gap_threshold", 0.4)
	v.SetDefault("analysis.citation_target", 0.7)

	v.SetDefault("chunking.target_size", 512)
	v.SetDefault("chunking.overlap", 50)
	v.SetDefault("chunking.respect_boundaries", true)
	v.SetDefault("chunking.embed_chunks", false)
}
