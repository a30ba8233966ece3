package queue

import (
	"context"
	"errors"
	"time"

	"github.com/syncline/marketsync/internal/domain"
)

// ErrSyncInFlight is returned by Enqueue when the store connection already
// has a queued or processing job. One connection never runs two syncs at
// once.
var ErrSyncInFlight = errors.New("a sync job is already queued or running for this connection")

// SyncRequest is the payload of one sync job enqueue.
type SyncRequest struct {
	WorkspaceID       string
	UserID            string
	StoreConnectionID string
	Filters           domain.ProductSyncFilters
	Force             bool
}

// EnqueueOptions tunes queue behavior per job.
type EnqueueOptions struct {
	Priority    int
	MaxAttempts int
}

// JobStatusView is the queryable snapshot of a job's state.
type JobStatusView struct {
	ID           string              `json:"id"`
	Status       domain.JobStatus    `json:"status"`
	Progress     domain.SyncProgress `json:"progress"`
	Summary      domain.SyncSummary  `json:"summary"`
	Errors       domain.SyncErrorList `json:"errors,omitempty"`
	FailedReason string              `json:"failed_reason,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// Queue is the job queue contract the sync engine consumes. Delivery is
// at-least-once; the orchestrator's upsert-by-external-id makes redelivery
// safe.
type Queue interface {
	// Enqueue creates a queued sync job and returns its ID. Fails with
	// ErrSyncInFlight when the connection already has an active job.
	Enqueue(ctx context.Context, req SyncRequest, opts EnqueueOptions) (string, error)

	// DequeueAndLease claims the next queued job for the given worker, or
	// returns nil when the queue is empty.
	DequeueAndLease(ctx context.Context, workerID string) (*domain.SyncJob, error)

	// Requeue returns a leased job to the queue unprocessed.
	Requeue(ctx context.Context, jobID string) error

	// ReportProgress publishes job progress.
	ReportProgress(ctx context.Context, jobID string, p domain.SyncProgress) error

	// ReportResult records a job's terminal status along with its summary and
	// error list.
	ReportResult(ctx context.Context, job *domain.SyncJob, status domain.JobStatus) error

	// Cancel flags a job for cancellation.
	Cancel(ctx context.Context, jobID string) error

	// IsCancelled reads a job's cancellation flag.
	IsCancelled(ctx context.Context, jobID string) (bool, error)

	// GetStatus returns the queryable snapshot of a job.
	GetStatus(ctx context.Context, jobID string) (*JobStatusView, error)
}
