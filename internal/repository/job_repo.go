package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrJobRunning is returned by Begin when a run is already in progress.
	ErrJobRunning = errors.New("import job is already running")
	// ErrStaleRun is returned when a progress write targets a run that is no
	// longer the running one.
	ErrStaleRun = errors.New("import run is no longer active")
)

// JobRepository stores the single import job record.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Get returns the job record. Before any run it reports an idle job.
func (r *JobRepository) Get(ctx context.Context) (*domain.ImportJob, error) {
	var job domain.ImportJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", domain.CurrentJobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.IdleJob(), nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Begin atomically replaces the job record with a new running run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: run to start; RunID, Trigger, Total, BatchSize and Message are used.
//
// Returns:
//   - error: ErrJobRunning if another run holds the record.
func (r *JobRepository) Begin(ctx context.Context, job *domain.ImportJob) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(domain.IdleJob()).Error; err != nil {
		return err
	}

	now := time.Now()
	res := db.Model(&domain.ImportJob{}).
		Where("id = ? AND status <> ?", domain.CurrentJobID, domain.JobStatusRunning).
		Updates(map[string]interface{}{
			"run_id":       job.RunID,
			"trigger":      job.Trigger,
			"status":       domain.JobStatusRunning,
			"total":        job.Total,
			"processed":    0,
			"failed":       0,
			"batch_size":   job.BatchSize,
			"message":      job.Message,
			"started_at":   now,
			"completed_at": nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrJobRunning
	}

	job.ID = domain.CurrentJobID
	job.Status = domain.JobStatusRunning
	job.Processed, job.Failed = 0, 0
	job.StartedAt, job.CompletedAt = &now, nil
	job.UpdatedAt = now
	return nil
}

// UpdateProgress records batch progress for the running run. A terminal
// status also stamps CompletedAt.
// Returns:
//   - error: ErrStaleRun if runID is not the running run.
func (r *JobRepository) UpdateProgress(ctx context.Context, runID string, processed, failed int, message string, status domain.JobStatus) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed":  processed,
		"failed":     failed,
		"message":    message,
		"status":     status,
		"updated_at": now,
	}
	if status != domain.JobStatusRunning {
		updates["completed_at"] = now
	}
	return r.conditionalUpdate(ctx, runID, domain.JobStatusRunning, updates)
}

// Transition moves the run from one status to another and sets its message.
// Returns:
//   - error: ErrStaleRun if runID is not the current run or not in from.
func (r *JobRepository) Transition(ctx context.Context, runID string, from, to domain.JobStatus, message string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     to,
		"message":    message,
		"updated_at": now,
	}
	if to != domain.JobStatusRunning {
		updates["completed_at"] = now
	}
	return r.conditionalUpdate(ctx, runID, from, updates)
}

func (r *JobRepository) conditionalUpdate(ctx context.Context, runID string, from domain.JobStatus, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Where("id = ? AND run_id = ? AND status = ?", domain.CurrentJobID, runID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrStaleRun
	}
	return nil
}

// MemoryJobRepository keeps the job record in process memory. It is used by
// tests and single-process CLI runs without a database.
type MemoryJobRepository struct {
	mu  sync.Mutex
	job domain.ImportJob
}

// NewMemoryJobRepository creates a repository holding an idle job.
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{job: *domain.IdleJob()}
}

// Get returns a copy of the job record.
func (r *MemoryJobRepository) Get(ctx context.Context) (*domain.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.job
	return &job, nil
}

// Begin starts a run unless one is already running.
func (r *MemoryJobRepository) Begin(ctx context.Context, job *domain.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.Status == domain.JobStatusRunning {
		return ErrJobRunning
	}
	now := time.Now()
	job.ID = domain.CurrentJobID
	job.Status = domain.JobStatusRunning
	job.Processed, job.Failed = 0, 0
	job.StartedAt, job.CompletedAt = &now, nil
	job.UpdatedAt = now
	r.job = *job
	return nil
}

// UpdateProgress records batch progress for the running run.
func (r *MemoryJobRepository) UpdateProgress(ctx context.Context, runID string, processed, failed int, message string, status domain.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.RunID != runID || r.job.Status != domain.JobStatusRunning {
		return ErrStaleRun
	}
	now := time.Now()
	r.job.Processed = processed
	r.job.Failed = failed
	r.job.Message = message
	r.job.Status = status
	r.job.UpdatedAt = now
	if status != domain.JobStatusRunning {
		r.job.CompletedAt = &now
	}
	return nil
}

// Transition moves the run from one status to another.
func (r *MemoryJobRepository) Transition(ctx context.Context, runID string, from, to domain.JobStatus, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.RunID != runID || r.job.Status != from {
		return ErrStaleRun
	}
	now := time.Now()
	r.job.Status = to
	r.job.Message = message
	r.job.UpdatedAt = now
	if to != domain.JobStatusRunning {
		r.job.CompletedAt = &now
	}
	return nil
}
