package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
	"github.com/pargar-ir/qanun-ingest/internal/syncbridge"
)

// SyncService enqueues sync jobs for the bridge worker and exposes them for
// inspection. The payload preview stored on the job is the exact body a
// delivery would send at enqueue time.
type SyncService struct {
	db         core.Store
	builder    *syncbridge.PayloadBuilder
	maxRetries int
}

func NewSyncService(db core.Store, builder *syncbridge.PayloadBuilder, maxRetries int) *SyncService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &SyncService{db: db, builder: builder, maxRetries: maxRetries}
}

// Enqueue creates a pending sync job for the target. Building the preview
// also validates that the target exists before the job is queued.
func (s *SyncService) Enqueue(ctx context.Context, jobType models.SyncJobType, targetID string) (*models.SyncJob, error) {
	job := &models.SyncJob{
		ID:         uuid.NewString(),
		JobType:    jobType,
		TargetID:   targetID,
		Status:     models.SyncPending,
		MaxRetries: s.maxRetries,
	}

	preview, err := s.builder.Build(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("build payload preview: %w", err)
	}
	job.PayloadPreview = preview

	if err := s.db.CreateSyncJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SyncService) Get(ctx context.Context, id string) (*models.SyncJob, error) {
	return s.db.GetSyncJob(ctx, id)
}

// Payload rebuilds the current delivery body for an existing job.
func (s *SyncService) Payload(ctx context.Context, id string) (map[string]any, error) {
	job, err := s.db.GetSyncJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(ctx, job)
}
