package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/citelens/internal/api"
	"github.com/timmy/citelens/internal/api/handler"
	"github.com/timmy/citelens/internal/app"
	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/logger"
)

func main() {
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	citations, err := a.Citations()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to compile citation rules")
	}

	router := api.SetupRouter(&api.Handlers{
		Health:    handler.NewHealthHandler(a.Ping, a.Client != nil),
		Embedding: handler.NewEmbeddingHandler(embeddingClient(a)),
		Cache:     handler.NewCacheHandler(a.Cache),
		Analysis:  handler.NewAnalysisHandler(a.Embedder(), citations, cfg.Analysis, cfg.Chunking),
	}, cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

// embeddingClient avoids handing the handler a typed nil.
func embeddingClient(a *app.App) handler.EmbeddingClient {
	if a.Client == nil {
		return nil
	}
	return a.Client
}
