package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/syncline/marketsync/internal/domain"
)

// SyncJobRepository handles sync job records, including the optimistic
// claim semantics the queue's dequeue-with-lease is built on.
type SyncJobRepository struct {
	db *gorm.DB
}

// NewSyncJobRepository creates a new SyncJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SyncJobRepository: repository instance bound to db.
func NewSyncJobRepository(db *gorm.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create inserts a new sync job.
func (r *SyncJobRepository) Create(ctx context.Context, job *domain.SyncJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a sync job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.SyncJob: job record if found.
//   - error: non-nil if lookup fails.
func (r *SyncJobRepository) GetByID(ctx context.Context, id string) (*domain.SyncJob, error) {
	var job domain.SyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// HasActiveForConnection reports whether a queued or processing job already
// exists for the store connection.
func (r *SyncJobRepository) HasActiveForConnection(ctx context.Context, connectionID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.SyncJob{}).
		Where("store_connection_id = ? AND status IN ?", connectionID,
			[]domain.JobStatus{domain.JobStatusQueued, domain.JobStatusProcessing}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ClaimNextQueued atomically transitions the oldest queued job to processing
// under the given worker identity. The status-guarded UPDATE makes the claim
// safe across concurrent workers: losing a race simply claims nothing.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - workerID: identity recorded on the lease.
// Returns:
//   - *domain.SyncJob: claimed job, or nil when the queue is empty.
//   - error: non-nil if the claim fails.
func (r *SyncJobRepository) ClaimNextQueued(ctx context.Context, workerID string) (*domain.SyncJob, error) {
	for {
		var job domain.SyncJob
		err := r.db.WithContext(ctx).
			Where("status = ?", domain.JobStatusQueued).
			Order("priority DESC, created_at ASC").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		now := time.Now()
		res := r.db.WithContext(ctx).Model(&domain.SyncJob{}).
			Where("id = ? AND status = ?", job.ID, domain.JobStatusQueued).
			Updates(map[string]interface{}{
				"status":     domain.JobStatusProcessing,
				"locked_by":  workerID,
				"locked_at":  now,
				"started_at": now,
				"attempts":   gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Another worker won the claim; try the next candidate.
			continue
		}

		return r.GetByID(ctx, job.ID)
	}
}

// Requeue pushes a processing job back to queued, releasing its lease. Used
// when the per-connection lock is held by another run.
func (r *SyncJobRepository) Requeue(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    domain.JobStatusQueued,
			"locked_by": "",
			"locked_at": nil,
		}).Error
}

// UpdateProgress writes the job's progress counters. Progress percentage is
// expected to be monotonically non-decreasing; callers enforce that.
func (r *SyncJobRepository) UpdateProgress(ctx context.Context, id string, p domain.SyncProgress) error {
	return r.db.WithContext(ctx).Model(&domain.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress_current": p.Current,
			"progress_total":   p.Total,
			"progress_percent": p.Percentage,
			"eta_seconds":      p.ETASeconds,
		}).Error
}

// Finish records a job's terminal state, summary, and error list.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job carrying final counters, errors, and failure reason.
//   - status: terminal status (completed or failed).
// Returns:
//   - error: non-nil if the update fails.
func (r *SyncJobRepository) Finish(ctx context.Context, job *domain.SyncJob, status domain.JobStatus) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.SyncJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":           status,
			"created":          job.Created,
			"updated":          job.Updated,
			"skipped":          job.Skipped,
			"errored":          job.Errored,
			"errors":           job.Errors,
			"failed_reason":    job.FailedReason,
			"progress_current": job.ProgressCurrent,
			"progress_total":   job.ProgressTotal,
			"progress_percent": job.ProgressPercent,
			"completed_at":     now,
			"locked_by":        "",
		}).Error
}

// MarkCancelled flags a job for cancellation. The orchestrator checks the
// flag between pages and exits cleanly, keeping upserts already committed.
func (r *SyncJobRepository) MarkCancelled(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.SyncJob{}).
		Where("id = ? AND status IN ?", id,
			[]domain.JobStatus{domain.JobStatusQueued, domain.JobStatusProcessing}).
		Update("cancelled", true).Error
}

// IsCancelled reads the job's cancellation flag.
func (r *SyncJobRepository) IsCancelled(ctx context.Context, id string) (bool, error) {
	var job domain.SyncJob
	if err := r.db.WithContext(ctx).Select("cancelled").First(&job, "id = ?", id).Error; err != nil {
		return false, err
	}
	return job.Cancelled, nil
}

// ReclaimExpiredLeases returns processing jobs whose lease is older than
// maxAge to the queue. Redelivery is safe because upserts are idempotent by
// external ID.
func (r *SyncJobRepository) ReclaimExpiredLeases(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := r.db.WithContext(ctx).Model(&domain.SyncJob{}).
		Where("status = ? AND locked_at < ?", domain.JobStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":    domain.JobStatusQueued,
			"locked_by": "",
			"locked_at": nil,
		})
	return res.RowsAffected, res.Error
}

// ListByWorkspace retrieves jobs for a workspace, newest first.
func (r *SyncJobRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]domain.SyncJob, error) {
	var jobs []domain.SyncJob
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
