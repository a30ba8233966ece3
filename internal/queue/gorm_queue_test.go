package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/syncline/marketsync/internal/config"
	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/repository"
)

func testQueue(t *testing.T) *GormQueue {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "test.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return NewGormQueue(repository.NewSyncJobRepository(db))
}

func testRequest(connectionID string) SyncRequest {
	return SyncRequest{
		WorkspaceID:       "ws-1",
		UserID:            "user-1",
		StoreConnectionID: connectionID,
	}
}

func TestEnqueueRejectsInFlight(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, testRequest("conn-1"), EnqueueOptions{})
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a job id")
	}

	// A second request for the same connection is rejected while the first
	// job is still queued.
	if _, err := q.Enqueue(ctx, testRequest("conn-1"), EnqueueOptions{}); !errors.Is(err, ErrSyncInFlight) {
		t.Fatalf("expected ErrSyncInFlight, got %v", err)
	}

	// The rejection also applies while the job is processing.
	job, err := q.DequeueAndLease(ctx, "worker-1")
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if job == nil || job.ID != jobID {
		t.Fatalf("expected to claim job %s, got %+v", jobID, job)
	}
	if _, err := q.Enqueue(ctx, testRequest("conn-1"), EnqueueOptions{}); !errors.Is(err, ErrSyncInFlight) {
		t.Fatalf("expected ErrSyncInFlight while processing, got %v", err)
	}

	// Once the job reaches a terminal state the connection is free again.
	job.Created = 3
	if err := q.ReportResult(ctx, job, domain.JobStatusCompleted); err != nil {
		t.Fatalf("report result: %v", err)
	}
	if _, err := q.Enqueue(ctx, testRequest("conn-1"), EnqueueOptions{}); err != nil {
		t.Fatalf("enqueue after completion: %v", err)
	}
}

func TestDequeueOrdersByPriority(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	lowID, err := q.Enqueue(ctx, testRequest("conn-low"), EnqueueOptions{Priority: 0})
	if err != nil {
		t.Fatalf("enqueue low: %v", err)
	}
	highID, err := q.Enqueue(ctx, testRequest("conn-high"), EnqueueOptions{Priority: 5})
	if err != nil {
		t.Fatalf("enqueue high: %v", err)
	}

	first, err := q.DequeueAndLease(ctx, "worker-1")
	if err != nil {
		t.Fatalf("dequeue first: %v", err)
	}
	if first == nil || first.ID != highID {
		t.Fatalf("expected high-priority job %s first, got %+v", highID, first)
	}
	if first.Status != domain.JobStatusProcessing {
		t.Errorf("expected claimed job status processing, got %s", first.Status)
	}
	if first.LockedBy != "worker-1" {
		t.Errorf("expected lease held by worker-1, got %q", first.LockedBy)
	}
	if first.Attempts != 1 {
		t.Errorf("expected one attempt recorded, got %d", first.Attempts)
	}

	second, err := q.DequeueAndLease(ctx, "worker-2")
	if err != nil {
		t.Fatalf("dequeue second: %v", err)
	}
	if second == nil || second.ID != lowID {
		t.Fatalf("expected low-priority job %s second, got %+v", lowID, second)
	}

	empty, err := q.DequeueAndLease(ctx, "worker-3")
	if err != nil {
		t.Fatalf("dequeue empty: %v", err)
	}
	if empty != nil {
		t.Errorf("expected nil on empty queue, got %+v", empty)
	}
}

func TestRequeueReleasesLease(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, testRequest("conn-1"), EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := q.DequeueAndLease(ctx, "worker-1")
	if err != nil || job == nil {
		t.Fatalf("dequeue: job=%+v err=%v", job, err)
	}

	if err := q.Requeue(ctx, jobID); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	again, err := q.DequeueAndLease(ctx, "worker-2")
	if err != nil {
		t.Fatalf("dequeue after requeue: %v", err)
	}
	if again == nil || again.ID != jobID {
		t.Fatalf("expected requeued job %s, got %+v", jobID, again)
	}
	if again.LockedBy != "worker-2" {
		t.Errorf("expected new lease holder worker-2, got %q", again.LockedBy)
	}
}

func TestCancelFlag(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, testRequest("conn-1"), EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	cancelled, err := q.IsCancelled(ctx, jobID)
	if err != nil {
		t.Fatalf("is cancelled: %v", err)
	}
	if cancelled {
		t.Error("expected fresh job not cancelled")
	}

	if err := q.Cancel(ctx, jobID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	cancelled, err = q.IsCancelled(ctx, jobID)
	if err != nil {
		t.Fatalf("is cancelled after cancel: %v", err)
	}
	if !cancelled {
		t.Error("expected job flagged cancelled")
	}
}

func TestGetStatusSnapshot(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, testRequest("conn-1"), EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := q.DequeueAndLease(ctx, "worker-1")
	if err != nil || job == nil {
		t.Fatalf("dequeue: job=%+v err=%v", job, err)
	}

	if err := q.ReportProgress(ctx, jobID, domain.SyncProgress{Current: 40, Total: 100, Percentage: 40}); err != nil {
		t.Fatalf("report progress: %v", err)
	}

	view, err := q.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.Status != domain.JobStatusProcessing {
		t.Errorf("expected processing, got %s", view.Status)
	}
	if view.Progress.Current != 40 || view.Progress.Total != 100 {
		t.Errorf("unexpected progress: %+v", view.Progress)
	}
	if view.StartedAt == nil {
		t.Error("expected started_at set on claimed job")
	}

	job.Created = 2
	job.Updated = 1
	job.Errored = 1
	job.Errors = domain.SyncErrorList{{ExternalID: "ext-9", Message: "malformed payload"}}
	if err := q.ReportResult(ctx, job, domain.JobStatusCompleted); err != nil {
		t.Fatalf("report result: %v", err)
	}

	view, err = q.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("get status after finish: %v", err)
	}
	if view.Status != domain.JobStatusCompleted {
		t.Errorf("expected completed, got %s", view.Status)
	}
	if view.Summary.Created != 2 || view.Summary.Updated != 1 || view.Summary.Errored != 1 {
		t.Errorf("unexpected summary: %+v", view.Summary)
	}
	if len(view.Errors) != 1 || view.Errors[0].ExternalID != "ext-9" {
		t.Errorf("unexpected errors: %+v", view.Errors)
	}
	if view.CompletedAt == nil {
		t.Error("expected completed_at set on finished job")
	}
}
