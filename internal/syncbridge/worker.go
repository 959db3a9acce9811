package syncbridge

import (
	"context"
	"time"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/logger"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

const dueBatchSize = 50

// Pusher is the delivery side of the worker; *Client satisfies it.
type Pusher interface {
	Push(ctx context.Context, payload map[string]any) error
}

// Worker polls for due sync jobs and delivers them. Each attempt transitions
// the job running -> success, or running -> error with backoff scheduling.
type Worker struct {
	store    core.Store
	builder  *PayloadBuilder
	pusher   Pusher
	log      *logger.Logger
	interval time.Duration
}

func NewWorker(store core.Store, builder *PayloadBuilder, pusher Pusher, log *logger.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{store: store, builder: builder, pusher: pusher, log: log, interval: interval}
}

// Start launches the polling loop in a goroutine; it stops when ctx is
// cancelled.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce processes one batch of due jobs.
func (w *Worker) RunOnce(ctx context.Context) {
	jobs, err := w.store.DueSyncJobs(ctx, time.Now(), dueBatchSize)
	if err != nil {
		w.log.Error("due sync job poll failed", "error", err)
		return
	}
	for i := range jobs {
		w.deliver(ctx, &jobs[i])
	}
}

func (w *Worker) deliver(ctx context.Context, job *models.SyncJob) {
	job.MarkRunning()
	if err := w.store.UpdateSyncJob(ctx, job); err != nil {
		w.log.Error("mark sync job running failed", "job_id", job.ID, "error", err)
		return
	}

	payload, err := w.builder.Build(ctx, job)
	if err == nil {
		err = w.pusher.Push(ctx, payload)
	}

	now := time.Now()
	if err != nil {
		job.MarkError(now, err.Error())
		w.log.Warn("sync job delivery failed",
			"job_id", job.ID, "job_type", job.JobType,
			"retry_count", job.RetryCount, "error", err)
	} else {
		job.MarkSuccess(now)
		w.log.Info("sync job delivered", "job_id", job.ID, "job_type", job.JobType)
	}

	if err := w.store.UpdateSyncJob(ctx, job); err != nil {
		w.log.Error("sync job state update failed", "job_id", job.ID, "error", err)
	}
}
