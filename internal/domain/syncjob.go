package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus represents the lifecycle state of a sync job.
// Values include JobStatusQueued, JobStatusProcessing, JobStatusCompleted,
// and JobStatusFailed.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// SyncProgress tracks how far a job has advanced. Percentage is monotonically
// non-decreasing while the job is processing; Total may be an estimate that is
// refined as pagination proceeds.
type SyncProgress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	ETASeconds int     `json:"eta_seconds,omitempty"`
}

// SyncSummary is the result tally of a completed sync run.
type SyncSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

// SyncItemError records one per-item failure inside a job. Item errors never
// abort the job on their own.
type SyncItemError struct {
	ExternalID string    `json:"external_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SyncErrorList stores item errors as a JSON column.
type SyncErrorList []SyncItemError

func (l SyncErrorList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *SyncErrorList) Scan(value interface{}) error {
	if value == nil {
		*l = SyncErrorList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan SyncErrorList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}

// FiltersSnapshot stores the filters a job was requested with, for audit.
type FiltersSnapshot ProductSyncFilters

func (f FiltersSnapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(ProductSyncFilters(f))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FiltersSnapshot) Scan(value interface{}) error {
	if value == nil {
		*f = FiltersSnapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FiltersSnapshot")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, (*ProductSyncFilters)(f))
}

// SyncJob is one sync request and its full run history. Mutated only by the
// orchestrator; retained after completion for audit, never deleted by the
// engine itself.
type SyncJob struct {
	ID                string          `gorm:"type:text;primaryKey" json:"id"`
	WorkspaceID       string          `gorm:"type:text;not null;index:idx_sync_jobs_workspace" json:"workspace_id"`
	UserID            string          `gorm:"type:text" json:"user_id"`
	StoreConnectionID string          `gorm:"type:text;not null;index:idx_sync_jobs_connection" json:"store_connection_id"`
	Filters           FiltersSnapshot `gorm:"type:text" json:"filters"`
	Force             bool            `json:"force"`
	Status            JobStatus       `gorm:"type:text;index:idx_sync_jobs_status;default:queued" json:"status"`
	Priority          int             `gorm:"default:0" json:"priority"`
	Attempts          int             `gorm:"default:0" json:"attempts"`
	MaxAttempts       int             `gorm:"default:1" json:"max_attempts"`
	ProgressCurrent   int             `gorm:"default:0" json:"progress_current"`
	ProgressTotal     int             `gorm:"default:0" json:"progress_total"`
	ProgressPercent   float64         `gorm:"default:0" json:"progress_percent"`
	ETASeconds        int             `gorm:"default:0" json:"eta_seconds"`
	Created           int             `gorm:"default:0" json:"created"`
	Updated           int             `gorm:"default:0" json:"updated"`
	Skipped           int             `gorm:"default:0" json:"skipped"`
	Errored           int             `gorm:"default:0" json:"errored"`
	Errors            SyncErrorList   `gorm:"type:text" json:"errors"`
	FailedReason      string          `gorm:"type:text" json:"failed_reason,omitempty"`
	Cancelled         bool            `gorm:"default:false" json:"cancelled"`
	LockedBy          string          `gorm:"type:text" json:"-"`
	LockedAt          *time.Time      `json:"-"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName returns the database table name for SyncJob.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (SyncJob) TableName() string {
	return "sync_jobs"
}

// Progress assembles the job's progress fields into a SyncProgress value.
func (j *SyncJob) Progress() SyncProgress {
	return SyncProgress{
		Current:    j.ProgressCurrent,
		Total:      j.ProgressTotal,
		Percentage: j.ProgressPercent,
		ETASeconds: j.ETASeconds,
	}
}

// Summary assembles the job's counters into a SyncSummary value.
func (j *SyncJob) Summary() SyncSummary {
	return SyncSummary{
		Created: j.Created,
		Updated: j.Updated,
		Skipped: j.Skipped,
		Errored: j.Errored,
	}
}
