package models

import (
	"time"
)

// SyncJob is one queued push of an entity to the external core service.
// Delivery failures retry with exponential backoff until MaxRetries is
// exhausted; the job then stays in SyncError for manual intervention.
type SyncJob struct {
	ID             string         `db:"id" json:"id"`
	JobType        SyncJobType    `db:"job_type" json:"job_type"`
	TargetID       string         `db:"target_id" json:"target_id"`
	PayloadPreview map[string]any `db:"payload_preview" json:"payload_preview"`
	Status         SyncJobStatus  `db:"status" json:"status"`
	LastError      string         `db:"last_error" json:"last_error"`
	RetryCount     int            `db:"retry_count" json:"retry_count"`
	MaxRetries     int            `db:"max_retries" json:"max_retries"`
	NextRetryAt    *time.Time     `db:"next_retry_at" json:"next_retry_at,omitempty"`
	CompletedAt    *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CanRetry reports whether a failed job still has retry budget.
func (j *SyncJob) CanRetry() bool {
	return j.Status == SyncError && j.RetryCount < j.MaxRetries
}

// MarkRunning transitions the job to running.
func (j *SyncJob) MarkRunning() {
	j.Status = SyncRunning
}

// MarkSuccess transitions the job to its terminal success state.
func (j *SyncJob) MarkSuccess(now time.Time) {
	j.Status = SyncSuccess
	j.CompletedAt = &now
	j.NextRetryAt = nil
}

// MarkError records a delivery failure and, while retries remain, schedules
// the next attempt at now + 2^retry_count minutes (2, 4, 8, ...).
func (j *SyncJob) MarkError(now time.Time, errMsg string) {
	j.Status = SyncError
	j.LastError = errMsg
	j.RetryCount++

	if j.CanRetry() {
		delay := time.Duration(1<<uint(j.RetryCount)) * time.Minute
		next := now.Add(delay)
		j.NextRetryAt = &next
	} else {
		j.NextRetryAt = nil
	}
}

// Due reports whether the job should be attempted at the given time.
func (j *SyncJob) Due(now time.Time) bool {
	switch j.Status {
	case SyncPending:
		return true
	case SyncError:
		return j.RetryCount < j.MaxRetries && j.NextRetryAt != nil && !j.NextRetryAt.After(now)
	default:
		return false
	}
}
