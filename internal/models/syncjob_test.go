package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkErrorBacksOffExponentially(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := &SyncJob{Status: SyncPending, MaxRetries: 3}

	j.MarkError(now, "connection refused")
	require.NotNil(t, j.NextRetryAt)
	assert.Equal(t, now.Add(2*time.Minute), *j.NextRetryAt)
	assert.Equal(t, 1, j.RetryCount)
	assert.Equal(t, SyncError, j.Status)
	assert.Equal(t, "connection refused", j.LastError)

	j.MarkError(now, "connection refused")
	require.NotNil(t, j.NextRetryAt)
	assert.Equal(t, now.Add(4*time.Minute), *j.NextRetryAt)

	j.MarkError(now, "connection refused")
	assert.Equal(t, 3, j.RetryCount)
	assert.Nil(t, j.NextRetryAt)
	assert.False(t, j.CanRetry())
}

func TestMarkSuccessIsTerminal(t *testing.T) {
	now := time.Now().UTC()
	j := &SyncJob{Status: SyncRunning, MaxRetries: 3}

	j.MarkSuccess(now)
	assert.Equal(t, SyncSuccess, j.Status)
	require.NotNil(t, j.CompletedAt)
	assert.Equal(t, now, *j.CompletedAt)
	assert.Nil(t, j.NextRetryAt)
	assert.False(t, j.Due(now.Add(time.Hour)))
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pending := &SyncJob{Status: SyncPending, MaxRetries: 3}
	assert.True(t, pending.Due(now))

	running := &SyncJob{Status: SyncRunning, MaxRetries: 3}
	assert.False(t, running.Due(now))

	errored := &SyncJob{Status: SyncPending, MaxRetries: 3}
	errored.MarkError(now, "boom")
	assert.False(t, errored.Due(now.Add(time.Minute)))
	assert.True(t, errored.Due(now.Add(2*time.Minute)))

	exhausted := &SyncJob{Status: SyncPending, MaxRetries: 1}
	exhausted.MarkError(now, "boom")
	assert.False(t, exhausted.Due(now.Add(time.Hour)))
}
