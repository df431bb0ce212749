package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/logger"
	"github.com/timmy/citelens/internal/report"
	"github.com/timmy/citelens/internal/source"
	"github.com/timmy/citelens/internal/storage"
)

// RunStore records analysis runs.
type RunStore interface {
	Create(ctx context.Context, run *domain.AnalysisRun) error
	MarkFinished(ctx context.Context, run *domain.AnalysisRun, runErr error) error
}

// UsageReporter exposes provider spend, implemented by EmbeddingClient.
type UsageReporter interface {
	Usage(ctx context.Context) (*UsageStats, error)
}

// AnalysisJob runs one analysis end to end: load, analyze, write, upload, record.
type AnalysisJob struct {
	service   *AnalysisService
	writer    *report.Writer
	runs      RunStore
	store     storage.ObjectStorage
	usage     UsageReporter
}

// AnalysisJobConfig wires the optional collaborators of a job.
// Runs, Store and Usage may be nil.
type AnalysisJobConfig struct {
	OutputDir string
	Runs      RunStore
	Store     storage.ObjectStorage
	Usage     UsageReporter
}

// NewAnalysisJob creates an AnalysisJob around service.
func NewAnalysisJob(service *AnalysisService, cfg *AnalysisJobConfig) *AnalysisJob {
	return &AnalysisJob{
		service: service,
		writer:  report.NewWriter(cfg.OutputDir),
		runs:    cfg.Runs,
		store:   cfg.Store,
		usage:   cfg.Usage,
	}
}

// JobResult is the outcome of AnalysisJob.Run.
type JobResult struct {
	Run    *domain.AnalysisRun
	Result *domain.AnalysisResult
	Files  []report.WrittenFile
	URLs   map[string]string
}

// Run analyzes the bundle at embeddingsPath.
// The run row is marked failed when any step after its creation fails.
func (j *AnalysisJob) Run(ctx context.Context, embeddingsPath string) (*JobResult, error) {
	run := &domain.AnalysisRun{
		ID:             uuid.New().String(),
		EmbeddingsPath: embeddingsPath,
		Status:         domain.RunStatusRunning,
		StartedAt:      time.Now(),
	}
	ctx = logger.SetRunID(ctx, run.ID)

	if j.runs != nil {
		if err := j.runs.Create(ctx, run); err != nil {
			return nil, err
		}
	}

	out, runErr := j.execute(ctx, run, embeddingsPath)

	if j.usage != nil {
		if usage, err := j.usage.Usage(ctx); err == nil {
			run.APICalls = usage.APICalls
			run.CacheHits = usage.CacheHits
			run.TokensUsed = usage.TokensUsed
		}
	}
	if j.runs != nil {
		if err := j.runs.MarkFinished(ctx, run, runErr); err != nil {
			logger.FromContext(ctx).WithError(err).Error("Failed to record analysis run")
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	out.Run = run
	return out, nil
}

func (j *AnalysisJob) execute(ctx context.Context, run *domain.AnalysisRun, embeddingsPath string) (*JobResult, error) {
	bundle, err := source.ReadEmbeddings(embeddingsPath)
	if err != nil {
		return nil, err
	}
	run.ContentCount = bundle.ContentCount
	run.KeywordCount = bundle.KeywordCount
	if run.ContentCount == 0 {
		run.ContentCount = len(bundle.ContentEmbeddings)
	}
	if run.KeywordCount == 0 {
		run.KeywordCount = len(bundle.KeywordEmbeddings)
	}

	result, err := j.service.Run(ctx, bundle)
	if err != nil {
		return nil, err
	}

	files, err := j.writer.Write(result)
	if err != nil {
		return nil, err
	}
	out := &JobResult{Result: result, Files: files}
	if len(files) > 0 {
		run.ReportPath = files[0].Path
	}

	if j.store != nil {
		urls, err := report.Publish(ctx, j.store, run.ID, files)
		if err != nil {
			return nil, fmt.Errorf("failed to upload report: %w", err)
		}
		out.URLs = urls
		run.ReportURL = urls[report.FileMainReport]
	}

	logger.With(logger.Fields{
		"pages":    run.ContentCount,
		"keywords": run.KeywordCount,
		"report":   run.ReportPath,
	}).Info(ctx, "Analysis completed")
	return out, nil
}
