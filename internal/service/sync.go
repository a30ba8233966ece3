package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syncline/marketsync/internal/archive"
	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/logger"
	"github.com/syncline/marketsync/internal/marketplace"
	"github.com/syncline/marketsync/internal/queue"
	"github.com/syncline/marketsync/internal/repository"
)

// failedReasonCancelled is recorded when a job is stopped by a cancel request.
const failedReasonCancelled = "cancelled"

// SyncService drives sync jobs end to end: it leases jobs off the queue,
// walks the marketplace's ID pages, fetches and maps each product, and
// upserts it into the canonical catalog. One run per connection at a time.
type SyncService struct {
	connections *repository.ConnectionRepository
	products    *repository.ProductRepository
	registry    *marketplace.Registry
	queue       queue.Queue
	locker      *queue.ConnectionLocker
	archiver    archive.Archiver
	logger      *logger.Logger
	retry       RetryPolicy

	itemConcurrency int
	pollInterval    time.Duration
	lockTTL         time.Duration
}

// SyncConfig holds tunables for the sync service.
type SyncConfig struct {
	ItemConcurrency int
	PollInterval    time.Duration
	LockTTL         time.Duration
	Retry           RetryPolicy
}

// NewSyncService creates a new sync service.
// Parameters:
//   - connections: store connection repository.
//   - products: canonical product repository.
//   - registry: marketplace adapter registry.
//   - q: job queue.
//   - locker: per-connection lock; nil disables distributed locking.
//   - archiver: raw payload archive; nil disables archiving.
//   - log: structured logger.
//   - cfg: service tunables; nil uses defaults.
// Returns:
//   - *SyncService: initialized sync service.
func NewSyncService(
	connections *repository.ConnectionRepository,
	products *repository.ProductRepository,
	registry *marketplace.Registry,
	q queue.Queue,
	locker *queue.ConnectionLocker,
	archiver archive.Archiver,
	log *logger.Logger,
	cfg *SyncConfig,
) *SyncService {
	if cfg == nil {
		cfg = &SyncConfig{}
	}
	if cfg.ItemConcurrency <= 0 {
		cfg.ItemConcurrency = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Hour
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if archiver == nil {
		archiver = archive.Disabled{}
	}
	return &SyncService{
		connections:     connections,
		products:        products,
		registry:        registry,
		queue:           q,
		locker:          locker,
		archiver:        archiver,
		logger:          log,
		retry:           cfg.Retry,
		itemConcurrency: cfg.ItemConcurrency,
		pollInterval:    cfg.PollInterval,
		lockTTL:         cfg.LockTTL,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *SyncService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Run polls the queue and executes jobs until ctx is cancelled. Intended to
// be launched once per worker goroutine.
// Parameters:
//   - ctx: worker lifetime; cancelling it stops the loop after the current job.
//   - workerID: lease owner identity recorded on claimed jobs.
// Returns:
//   - error: ctx.Err() once the worker shuts down.
func (s *SyncService) Run(ctx context.Context, workerID string) error {
	s.log(ctx).WithField("worker_id", workerID).Info("Sync worker started")

	for {
		select {
		case <-ctx.Done():
			s.log(ctx).WithField("worker_id", workerID).Info("Sync worker stopped")
			return ctx.Err()
		default:
		}

		job, err := s.queue.DequeueAndLease(ctx, workerID)
		if err != nil {
			s.log(ctx).WithError(err).Error("Failed to dequeue job")
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pollInterval):
			}
			continue
		}

		jobCtx := logger.SetJobID(ctx, job.ID)
		jobCtx = logger.SetConnectionID(jobCtx, job.StoreConnectionID)
		jobCtx = logger.SetWorkspaceID(jobCtx, job.WorkspaceID)

		s.Execute(jobCtx, job)
	}
}

// Execute runs one leased job to completion. The job ends in status
// completed or failed; when the connection lock is held elsewhere the job is
// returned to the queue instead.
func (s *SyncService) Execute(ctx context.Context, job *domain.SyncJob) {
	start := time.Now()

	// Only one sync per connection may run at a time.
	token, acquired, err := s.locker.TryLock(ctx, job.StoreConnectionID, s.lockTTL)
	if err != nil {
		s.log(ctx).WithError(err).Error("Failed to acquire connection lock")
		s.failJob(ctx, job, fmt.Sprintf("lock error: %v", err))
		return
	}
	if !acquired {
		s.log(ctx).Info("Connection lock held elsewhere, requeueing job")
		if err := s.queue.Requeue(ctx, job.ID); err != nil {
			s.log(ctx).WithError(err).Error("Failed to requeue job")
		}
		return
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), job.StoreConnectionID, token); err != nil {
			s.log(ctx).WithError(err).Error("Failed to release connection lock")
		}
	}()

	conn, err := s.connections.GetByID(ctx, job.StoreConnectionID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("connection not found: %v", err))
		return
	}
	if conn.WorkspaceID != job.WorkspaceID {
		s.failJob(ctx, job, "connection removed or not owned by workspace")
		return
	}

	adapter, err := s.registry.Get(conn.MarketplaceType)
	if err != nil {
		s.failJob(ctx, job, err.Error())
		return
	}

	ctx = logger.SetMarketplace(ctx, string(conn.MarketplaceType))

	s.log(ctx).WithFields(logger.Fields{
		"force":   job.Force,
		"filters": job.Filters,
	}).Info("Starting sync")

	if err := s.connections.UpdateSyncState(ctx, conn.ID, domain.SyncStatusSyncing, nil); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to mark connection syncing")
	}

	err = s.runPages(ctx, job, conn, adapter)

	switch {
	case err == nil:
		now := time.Now()
		if err := s.connections.UpdateSyncState(ctx, conn.ID, domain.SyncStatusCompleted, &now); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to update connection sync state")
		}
		if err := s.queue.ReportResult(ctx, job, domain.JobStatusCompleted); err != nil {
			s.log(ctx).WithError(err).Error("Failed to report job result")
		}
		logger.With(logger.Fields{
			"created":  job.Created,
			"updated":  job.Updated,
			"skipped":  job.Skipped,
			"errored":  job.Errored,
			"duration": time.Since(start).String(),
		}).Info(ctx, "Sync completed")
	default:
		s.failJob(ctx, job, err.Error())
	}
}

// failJob marks the job failed and flips the connection's sync status.
func (s *SyncService) failJob(ctx context.Context, job *domain.SyncJob, reason string) {
	job.FailedReason = reason
	if err := s.connections.UpdateSyncState(ctx, job.StoreConnectionID, domain.SyncStatusFailed, nil); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to update connection sync state")
	}
	if err := s.queue.ReportResult(ctx, job, domain.JobStatusFailed); err != nil {
		s.log(ctx).WithError(err).Error("Failed to report job result")
	}
	s.log(ctx).WithField("reason", reason).Error("Sync failed")
}

// errCancelled aborts the page loop when a cancel request is observed.
var errCancelled = errors.New(failedReasonCancelled)

// runPages walks the marketplace's ID pages and processes each page's
// products. Returns nil on a clean finish, errCancelled when the job was
// cancelled, or a fatal error.
func (s *SyncService) runPages(ctx context.Context, job *domain.SyncJob, conn *domain.StoreConnection, adapter marketplace.Adapter) error {
	filters := domain.ProductSyncFilters(job.Filters)

	cursor := ""
	pages := 0
	for {
		// Cancellation is honored between pages, never mid-item.
		cancelled, err := s.queue.IsCancelled(ctx, job.ID)
		if err != nil {
			s.log(ctx).WithError(err).Warn("Failed to read cancellation flag")
		}
		if cancelled || ctx.Err() != nil {
			return errCancelled
		}

		if pages >= marketplace.MaxPageFetches {
			s.log(ctx).WithField(logger.FieldPage, pages).Warn("Page fetch ceiling reached, stopping pagination")
			s.reportProgress(ctx, job, true)
			return nil
		}
		pages++

		var ids []string
		var nextCursor string
		err = s.retry.Do(ctx, func() error {
			var ferr error
			ids, nextCursor, ferr = adapter.FetchIDPage(ctx, conn.Credentials, filters, cursor)
			return ferr
		})
		if err != nil {
			if marketplace.IsCredentialError(err) {
				return fmt.Errorf("credentials rejected: %w", err)
			}
			return fmt.Errorf("failed to fetch product page: %w", err)
		}

		if len(ids) > 0 {
			// Publish before processing so Total runs ahead of Current and
			// watchers see a percentage below 100 while pages remain.
			job.ProgressTotal += len(ids)
			s.reportProgress(ctx, job, false)
			if fatal := s.processPage(ctx, job, conn, adapter, ids); fatal != nil {
				return fatal
			}
		}

		if nextCursor == "" {
			s.reportProgress(ctx, job, true)
			return nil
		}
		cursor = nextCursor
	}
}

// processPage fetches and upserts one page of products with bounded
// concurrency. Per-item failures are recorded on the job; only credential
// errors abort the run.
func (s *SyncService) processPage(ctx context.Context, job *domain.SyncJob, conn *domain.StoreConnection, adapter marketplace.Adapter, ids []string) error {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.itemConcurrency)

	for _, externalID := range ids {
		externalID := externalID
		g.Go(func() error {
			created, err := s.processItem(gctx, job, conn, adapter, externalID)

			mu.Lock()
			defer mu.Unlock()
			job.ProgressCurrent++

			switch {
			case err == nil:
				if created {
					job.Created++
				} else {
					job.Updated++
				}
			case marketplace.IsCredentialError(err):
				return fmt.Errorf("credentials rejected: %w", err)
			case errors.Is(err, repository.ErrExternalIDCollision):
				job.Skipped++
				s.log(gctx).WithField("external_id", externalID).Warn("Skipping product owned by another connection")
			default:
				job.Errored++
				job.Errors = append(job.Errors, domain.SyncItemError{
					ExternalID: externalID,
					Message:    err.Error(),
					OccurredAt: time.Now(),
				})
				s.log(gctx).WithField("external_id", externalID).WithError(err).Error("Failed to sync product")
			}
			return nil
		})
	}

	return g.Wait()
}

// processItem fetches one product, upserts it, and archives the snapshot.
func (s *SyncService) processItem(ctx context.Context, job *domain.SyncJob, conn *domain.StoreConnection, adapter marketplace.Adapter, externalID string) (created bool, err error) {
	var product *domain.Product
	err = s.retry.Do(ctx, func() error {
		var ferr error
		product, ferr = adapter.FetchProduct(ctx, conn.Credentials, externalID)
		return ferr
	})
	if err != nil {
		return false, err
	}

	product.WorkspaceID = conn.WorkspaceID
	product.StoreConnectionID = conn.ID
	product.MarketplaceType = string(conn.MarketplaceType)

	result, err := s.products.Upsert(ctx, product)
	if err != nil {
		return false, err
	}

	// Archive the snapshot. Failures never fail the item.
	if payload, merr := json.Marshal(product); merr == nil {
		if aerr := s.archiver.Store(ctx, conn.ID, externalID, payload); aerr != nil {
			s.log(ctx).WithField("external_id", externalID).WithError(aerr).Warn("Failed to archive product snapshot")
		}
	}

	return result.Created, nil
}

// reportProgress publishes the job's running progress with an ETA estimated
// from the average per-item pace so far.
func (s *SyncService) reportProgress(ctx context.Context, job *domain.SyncJob, final bool) {
	p := domain.SyncProgress{
		Current: job.ProgressCurrent,
		Total:   job.ProgressTotal,
	}
	if p.Total > 0 {
		p.Percentage = float64(p.Current) / float64(p.Total) * 100
	}
	if final {
		p.ETASeconds = 0
	} else if job.StartedAt != nil && p.Current > 0 {
		elapsed := time.Since(*job.StartedAt)
		perItem := elapsed / time.Duration(p.Current)
		remaining := p.Total - p.Current
		p.ETASeconds = int((perItem * time.Duration(remaining)).Seconds())
	}
	job.ProgressPercent = p.Percentage
	job.ETASeconds = p.ETASeconds

	if err := s.queue.ReportProgress(ctx, job.ID, p); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to report progress")
	}
}
