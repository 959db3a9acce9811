package services

import (
	"context"

	"github.com/pargar-ir/qanun-ingest/internal/models"
)

// ProcessScheduler receives write-path events that may warrant a chunk
// processing run. *pipeline.Scheduler satisfies it.
type ProcessScheduler interface {
	UnitSaved(unit *models.LegalUnit, created, contentChanged bool)
	ExpressionCreated(ctx context.Context, exprID string)
	UnitDeleted(unitID string, chunkCount int)
}
