package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/repository"
)

// GormQueue is the database-backed Queue implementation. Jobs live in the
// sync_jobs table; dequeue uses a status-guarded optimistic claim, so
// multiple workers can poll the same table safely.
type GormQueue struct {
	jobs *repository.SyncJobRepository
}

// NewGormQueue creates a queue backed by the sync job repository.
// Parameters:
//   - jobs: sync job repository.
// Returns:
//   - *GormQueue: queue instance.
func NewGormQueue(jobs *repository.SyncJobRepository) *GormQueue {
	return &GormQueue{jobs: jobs}
}

// Enqueue creates a queued sync job, rejecting the request when the
// connection already has an active one.
func (q *GormQueue) Enqueue(ctx context.Context, req SyncRequest, opts EnqueueOptions) (string, error) {
	active, err := q.jobs.HasActiveForConnection(ctx, req.StoreConnectionID)
	if err != nil {
		return "", fmt.Errorf("failed to check active jobs: %w", err)
	}
	if active {
		return "", ErrSyncInFlight
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	job := &domain.SyncJob{
		ID:                uuid.New().String(),
		WorkspaceID:       req.WorkspaceID,
		UserID:            req.UserID,
		StoreConnectionID: req.StoreConnectionID,
		Filters:           domain.FiltersSnapshot(req.Filters),
		Force:             req.Force,
		Status:            domain.JobStatusQueued,
		Priority:          opts.Priority,
		MaxAttempts:       maxAttempts,
		Errors:            domain.SyncErrorList{},
	}
	if err := q.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to enqueue sync job: %w", err)
	}
	return job.ID, nil
}

// DequeueAndLease claims the next queued job for workerID, or returns nil
// when the queue is empty.
func (q *GormQueue) DequeueAndLease(ctx context.Context, workerID string) (*domain.SyncJob, error) {
	return q.jobs.ClaimNextQueued(ctx, workerID)
}

// Requeue returns a leased job to the queue unprocessed.
func (q *GormQueue) Requeue(ctx context.Context, jobID string) error {
	return q.jobs.Requeue(ctx, jobID)
}

// ReportProgress publishes job progress.
func (q *GormQueue) ReportProgress(ctx context.Context, jobID string, p domain.SyncProgress) error {
	return q.jobs.UpdateProgress(ctx, jobID, p)
}

// ReportResult records a job's terminal status.
func (q *GormQueue) ReportResult(ctx context.Context, job *domain.SyncJob, status domain.JobStatus) error {
	return q.jobs.Finish(ctx, job, status)
}

// Cancel flags a job for cancellation.
func (q *GormQueue) Cancel(ctx context.Context, jobID string) error {
	return q.jobs.MarkCancelled(ctx, jobID)
}

// IsCancelled reads a job's cancellation flag.
func (q *GormQueue) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	return q.jobs.IsCancelled(ctx, jobID)
}

// GetStatus returns the queryable snapshot of a job.
func (q *GormQueue) GetStatus(ctx context.Context, jobID string) (*JobStatusView, error) {
	job, err := q.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobStatusView{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress(),
		Summary:      job.Summary(),
		Errors:       job.Errors,
		FailedReason: job.FailedReason,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}, nil
}
