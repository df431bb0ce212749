// Package app wires configuration into the repositories and services shared
// by the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/citelens/internal/analysis"
	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/logger"
	"github.com/timmy/citelens/internal/repository"
	"github.com/timmy/citelens/internal/service"
	"github.com/timmy/citelens/internal/storage"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Cache      *repository.EmbeddingCacheRepository
	Runs       *repository.AnalysisRunRepository
	References *config.References

	// Client is nil when no embedding API key is configured.
	Client *service.EmbeddingClient
	// Index is nil unless qdrant.enabled is set.
	Index *repository.QdrantRepository
	// Storage is nil unless storage.enabled is set.
	Storage storage.ObjectStorage
}

// New opens the database and builds every enabled component.
// A missing embedding API key is not an error: Client stays nil and a
// warning is logged.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{
		Config: cfg,
		DB:     db,
		Cache:  repository.NewEmbeddingCacheRepository(db),
		Runs:   repository.NewAnalysisRunRepository(db),
	}

	if a.References, err = config.LoadReferences(cfg.References.Path); err != nil {
		a.Close()
		return nil, err
	}

	embeddingCfg := cfg.Embedding
	client, err := service.NewEmbeddingClient(&embeddingCfg, a.Cache)
	switch {
	case errors.Is(err, service.ErrMissingAPIKey):
		logger.CtxWarn(ctx, "Embedding API key not configured, embedding features are disabled: %v", err)
	case err != nil:
		a.Close()
		return nil, err
	default:
		a.Client = client
	}

	if cfg.Qdrant.Enabled {
		index, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: embeddingCfg.Dimensions,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Index = index
		if err := index.EnsureCollection(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure site index collection: %w", err)
		}
	}

	if cfg.Storage.Enabled {
		if a.Storage, err = storage.NewStorage(&cfg.Storage); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// Embedder returns the embedding client as a service.Embedder, or nil.
func (a *App) Embedder() service.Embedder {
	if a.Client == nil {
		return nil
	}
	return a.Client
}

// RequireClient returns the embedding client or an error naming the missing key.
func (a *App) RequireClient() (*service.EmbeddingClient, error) {
	if a.Client == nil {
		return nil, fmt.Errorf("%w: set embedding.api_key or %s", service.ErrMissingAPIKey, a.Config.Embedding.APIKeyEnv)
	}
	return a.Client, nil
}

// Citations returns the citation detector for the configured rule table.
func (a *App) Citations() (*analysis.Citations, error) {
	if len(a.References.CitationRules) == 0 {
		return analysis.NewCitations(nil), nil
	}
	svc, err := a.NewAnalysisService()
	if err != nil {
		return nil, err
	}
	return svc.Citations(), nil
}

// NewAnalysisService builds the analysis pipeline. Sitewide retrieval goes
// through the site index when one is configured.
func (a *App) NewAnalysisService() (*service.AnalysisService, error) {
	var retriever analysis.Retriever
	if a.Index != nil {
		retriever = service.IndexRetriever(a.Index)
	}
	return service.NewAnalysisService(a.Embedder(), &service.AnalysisServiceConfig{
		References: a.References,
		Analysis:   a.Config.Analysis,
		Chunking:   a.Config.Chunking,
		Retriever:  retriever,
	})
}

// NewAnalysisJob builds a job that records runs and, when configured,
// uploads reports.
func (a *App) NewAnalysisJob() (*service.AnalysisJob, error) {
	svc, err := a.NewAnalysisService()
	if err != nil {
		return nil, err
	}
	jobCfg := &service.AnalysisJobConfig{
		OutputDir: a.Config.Analysis.OutputDir,
		Runs:      a.Runs,
	}
	if a.Client != nil {
		jobCfg.Usage = a.Client
	}
	if a.Storage != nil && a.Config.Analysis.Upload {
		jobCfg.Store = a.Storage
	}
	return service.NewAnalysisJob(svc, jobCfg), nil
}

// NewGenerateService builds the generate pipeline. It needs the embedding client.
func (a *App) NewGenerateService(index bool) (*service.GenerateService, error) {
	client, err := a.RequireClient()
	if err != nil {
		return nil, err
	}
	var indexer service.SiteIndexer
	if index {
		if a.Index == nil {
			return nil, errors.New("site indexing requested but qdrant.enabled is false")
		}
		indexer = a.Index
	}
	return service.NewGenerateService(client, indexer), nil
}

// Ping checks the database connection.
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database and site index connections.
func (a *App) Close() {
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			logger.GetDefault().WithError(err).Warn("Failed to close site index connection")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
