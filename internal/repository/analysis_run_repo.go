package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/citelens/internal/domain"
	"gorm.io/gorm"
)

// AnalysisRunRepository stores the history of analysis runs.
type AnalysisRunRepository struct {
	db *gorm.DB
}

// NewAnalysisRunRepository creates a new AnalysisRunRepository.
func NewAnalysisRunRepository(db *gorm.DB) *AnalysisRunRepository {
	return &AnalysisRunRepository{db: db}
}

// Create inserts a new run.
func (r *AnalysisRunRepository) Create(ctx context.Context, run *domain.AnalysisRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}
	return nil
}

// Update saves every field of run.
func (r *AnalysisRunRepository) Update(ctx context.Context, run *domain.AnalysisRun) error {
	if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by ID, returning ErrNotFound when absent.
func (r *AnalysisRunRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	return &run, nil
}

// ListRecent returns up to limit runs, newest first.
func (r *AnalysisRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	var runs []domain.AnalysisRun
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	return runs, nil
}

// MarkFinished sets the terminal status of a run and its completion time.
// A non-nil runErr is stored in the error log and forces the failed status.
func (r *AnalysisRunRepository) MarkFinished(ctx context.Context, run *domain.AnalysisRun, runErr error) error {
	now := time.Now()
	run.CompletedAt = &now
	run.Status = domain.RunStatusCompleted
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorLog = runErr.Error()
	}
	return r.Update(ctx, run)
}
