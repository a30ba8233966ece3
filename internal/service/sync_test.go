package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/marketplace"
	"github.com/syncline/marketsync/internal/queue"
)

func newSyncService(env *testEnv) *SyncService {
	return NewSyncService(env.connections, env.products, env.registry, env.queue, nil, nil, env.logger, &SyncConfig{
		ItemConcurrency: 2,
		Retry:           RetryPolicy{MaxAttempts: 1},
	})
}

func enqueueAndClaim(t *testing.T, env *testEnv, connectionID string) *domain.SyncJob {
	t.Helper()
	ctx := context.Background()
	_, err := env.queue.Enqueue(ctx, queue.SyncRequest{
		WorkspaceID:       "ws-1",
		StoreConnectionID: connectionID,
	}, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := env.queue.DequeueAndLease(ctx, "worker-test")
	if err != nil || job == nil {
		t.Fatalf("dequeue: job=%+v err=%v", job, err)
	}
	return job
}

func TestExecuteSyncsAllPages(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1")
	env.adapter.pages = [][]string{{"p1", "p2"}, {"p3"}}
	for _, id := range []string{"p1", "p2", "p3"} {
		env.adapter.products[id] = fakeProduct(id)
	}

	svc := newSyncService(env)
	job := enqueueAndClaim(t, env, "conn-1")
	svc.Execute(context.Background(), job)

	view, err := env.queue.GetStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (reason %q)", view.Status, view.FailedReason)
	}
	if view.Summary.Created != 3 || view.Summary.Updated != 0 || view.Summary.Errored != 0 {
		t.Errorf("unexpected summary: %+v", view.Summary)
	}
	if view.Progress.Current != 3 || view.Progress.Total != 3 {
		t.Errorf("unexpected progress: %+v", view.Progress)
	}

	count, err := env.products.CountByConnection(context.Background(), "conn-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 products upserted, got %d", count)
	}

	got, err := env.products.GetByExternalID(context.Background(), "ws-1", "conn-1", "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.WorkspaceID != "ws-1" || got.StoreConnectionID != "conn-1" || got.MarketplaceType != "shopify" {
		t.Errorf("expected ownership stamped on product, got %+v", got)
	}

	conn, err := env.connections.GetByID(context.Background(), "conn-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if conn.SyncStatus != domain.SyncStatusCompleted {
		t.Errorf("expected connection marked completed, got %s", conn.SyncStatus)
	}
	if conn.LastSyncAt == nil {
		t.Error("expected last_sync_at set after a successful run")
	}
}

func TestExecuteRejectsForeignWorkspaceJob(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1") // owned by ws-1
	env.adapter.pages = [][]string{{"p1"}}
	env.adapter.products["p1"] = fakeProduct("p1")

	ctx := context.Background()
	_, err := env.queue.Enqueue(ctx, queue.SyncRequest{
		WorkspaceID:       "ws-intruder",
		StoreConnectionID: "conn-1",
	}, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := env.queue.DequeueAndLease(ctx, "worker-test")
	if err != nil || job == nil {
		t.Fatalf("dequeue: job=%+v err=%v", job, err)
	}

	svc := newSyncService(env)
	svc.Execute(ctx, job)

	view, err := env.queue.GetStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusFailed {
		t.Fatalf("expected foreign-workspace job to fail, got %s", view.Status)
	}
	if !strings.Contains(view.FailedReason, "not owned by workspace") {
		t.Errorf("unexpected failure reason: %q", view.FailedReason)
	}

	// No marketplace calls and no products for a job the workspace does not own.
	pages, products, _, _, _ := env.adapter.calls()
	if pages != 0 || products != 0 {
		t.Errorf("expected no marketplace calls, got pages=%d products=%d", pages, products)
	}
	count, err := env.products.CountByConnection(ctx, "conn-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no products synced, got %d", count)
	}
}

func TestExecuteRecordsItemErrorsWithoutFailingJob(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1")
	env.adapter.pages = [][]string{{"p1", "p2", "p3"}}
	env.adapter.products["p1"] = fakeProduct("p1")
	env.adapter.products["p3"] = fakeProduct("p3")
	env.adapter.productErrs["p2"] = &marketplace.DataError{Op: "fetch product", Err: errors.New("missing variants")}

	svc := newSyncService(env)
	job := enqueueAndClaim(t, env, "conn-1")
	svc.Execute(context.Background(), job)

	view, err := env.queue.GetStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Fatalf("expected item errors to leave the job completed, got %s", view.Status)
	}
	if view.Summary.Created != 2 || view.Summary.Errored != 1 {
		t.Errorf("unexpected summary: %+v", view.Summary)
	}
	if len(view.Errors) != 1 || view.Errors[0].ExternalID != "p2" {
		t.Fatalf("expected one recorded error for p2, got %+v", view.Errors)
	}
	if view.Errors[0].OccurredAt.IsZero() {
		t.Error("expected error timestamp set")
	}
}

func TestExecuteSkipsCrossConnectionCollisions(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1")
	env.seedConnection(t, "conn-2")

	// p1 already belongs to conn-2 in the same workspace.
	owned := fakeProduct("p1")
	owned.WorkspaceID = "ws-1"
	owned.StoreConnectionID = "conn-2"
	owned.MarketplaceType = "shopify"
	if _, err := env.products.Upsert(context.Background(), owned); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	env.adapter.pages = [][]string{{"p1", "p2"}}
	env.adapter.products["p1"] = fakeProduct("p1")
	env.adapter.products["p2"] = fakeProduct("p2")

	svc := newSyncService(env)
	job := enqueueAndClaim(t, env, "conn-1")
	svc.Execute(context.Background(), job)

	view, err := env.queue.GetStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (reason %q)", view.Status, view.FailedReason)
	}
	if view.Summary.Skipped != 1 || view.Summary.Created != 1 || view.Summary.Errored != 0 {
		t.Errorf("unexpected summary: %+v", view.Summary)
	}

	// The colliding product stays with its original connection.
	got, err := env.products.GetByExternalID(context.Background(), "ws-1", "conn-2", "p1")
	if err != nil {
		t.Fatalf("get owned product: %v", err)
	}
	if got.StoreConnectionID != "conn-2" {
		t.Errorf("expected p1 still owned by conn-2, got %s", got.StoreConnectionID)
	}
}

func TestExecuteFailsOnRejectedCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1")
	env.adapter.pageErr = marketplace.ErrInvalidCredentials

	svc := newSyncService(env)
	job := enqueueAndClaim(t, env, "conn-1")
	svc.Execute(context.Background(), job)

	view, err := env.queue.GetStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", view.Status)
	}
	if !strings.Contains(view.FailedReason, "credentials rejected") {
		t.Errorf("unexpected failure reason: %q", view.FailedReason)
	}

	conn, err := env.connections.GetByID(context.Background(), "conn-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if conn.SyncStatus != domain.SyncStatusFailed {
		t.Errorf("expected connection marked failed, got %s", conn.SyncStatus)
	}
}

func TestExecuteHonorsCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1")
	env.adapter.pages = [][]string{{"p1"}}
	env.adapter.products["p1"] = fakeProduct("p1")

	svc := newSyncService(env)
	job := enqueueAndClaim(t, env, "conn-1")

	if err := env.queue.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	svc.Execute(context.Background(), job)

	view, err := env.queue.GetStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusFailed {
		t.Fatalf("expected cancelled job to end failed, got %s", view.Status)
	}
	if view.FailedReason != "cancelled" {
		t.Errorf("expected failure reason %q, got %q", "cancelled", view.FailedReason)
	}

	// Nothing was fetched after the cancel was observed.
	pages, products, _, _, _ := env.adapter.calls()
	if pages != 0 || products != 0 {
		t.Errorf("expected no marketplace calls after cancel, got pages=%d products=%d", pages, products)
	}
}

// recordingQueue wraps a queue and captures every published progress report.
type recordingQueue struct {
	queue.Queue
	mu      sync.Mutex
	reports []domain.SyncProgress
}

func (r *recordingQueue) ReportProgress(ctx context.Context, jobID string, p domain.SyncProgress) error {
	r.mu.Lock()
	r.reports = append(r.reports, p)
	r.mu.Unlock()
	return r.Queue.ReportProgress(ctx, jobID, p)
}

func TestExecutePublishesIntermediateProgress(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1")
	env.adapter.pages = [][]string{{"p1", "p2"}, {"p3", "p4"}, {"p5"}}
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		env.adapter.products[id] = fakeProduct(id)
	}

	rq := &recordingQueue{Queue: env.queue}
	svc := NewSyncService(env.connections, env.products, env.registry, rq, nil, nil, env.logger, &SyncConfig{
		ItemConcurrency: 2,
		Retry:           RetryPolicy{MaxAttempts: 1},
	})
	job := enqueueAndClaim(t, env, "conn-1")
	svc.Execute(context.Background(), job)

	view, err := env.queue.GetStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (reason %q)", view.Status, view.FailedReason)
	}

	// One report ahead of each page plus a final one.
	if len(rq.reports) != 4 {
		t.Fatalf("expected 4 progress reports, got %d: %+v", len(rq.reports), rq.reports)
	}

	// Mid-run reports stay below 100% while pages remain.
	for i, p := range rq.reports[:len(rq.reports)-1] {
		if p.Current >= p.Total {
			t.Errorf("report %d: current=%d total=%d, want current behind total mid-run", i, p.Current, p.Total)
		}
		if p.Percentage >= 100 {
			t.Errorf("report %d: percentage=%.1f, want below 100 mid-run", i, p.Percentage)
		}
	}

	// Progress is monotonically non-decreasing.
	for i := 1; i < len(rq.reports); i++ {
		if rq.reports[i].Current < rq.reports[i-1].Current || rq.reports[i].Total < rq.reports[i-1].Total {
			t.Errorf("report %d regressed: %+v -> %+v", i, rq.reports[i-1], rq.reports[i])
		}
	}

	last := rq.reports[len(rq.reports)-1]
	if last.Current != 5 || last.Total != 5 || last.Percentage != 100 || last.ETASeconds != 0 {
		t.Errorf("unexpected final report: %+v", last)
	}
}

func TestExecuteStopsAtPageFetchCeiling(t *testing.T) {
	env := newTestEnv(t)
	env.seedConnection(t, "conn-1")
	// The marketplace never signals a final page.
	env.adapter.endless = []string{"p1"}
	env.adapter.products["p1"] = fakeProduct("p1")

	svc := newSyncService(env)
	job := enqueueAndClaim(t, env, "conn-1")
	svc.Execute(context.Background(), job)

	view, err := env.queue.GetStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Fatalf("expected a runaway cursor to end completed, got %s (reason %q)", view.Status, view.FailedReason)
	}

	pages, _, _, _, _ := env.adapter.calls()
	if pages != marketplace.MaxPageFetches {
		t.Errorf("expected exactly %d page fetches, got %d", marketplace.MaxPageFetches, pages)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSyncService(env.connections, env.products, env.registry, env.queue, nil, nil, env.logger, &SyncConfig{
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, "worker-1")
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
