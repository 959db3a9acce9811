package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

const pathSeparator = " > "

// UnitService manages the structural tree of an instrument. Every save
// recomputes the unit's path label from the live parent chain and notifies
// the processing scheduler.
type UnitService struct {
	db        core.Store
	scheduler ProcessScheduler
}

func NewUnitService(db core.Store, scheduler ProcessScheduler) *UnitService {
	return &UnitService{db: db, scheduler: scheduler}
}

func (s *UnitService) Create(ctx context.Context, u *models.LegalUnit) (*models.LegalUnit, error) {
	if strings.TrimSpace(u.Label) == "" {
		return nil, fmt.Errorf("label is required")
	}
	if u.ExprID != "" {
		if _, err := s.db.GetExpression(ctx, u.ExprID); err != nil {
			return nil, fmt.Errorf("expression %s: %w", u.ExprID, err)
		}
	}

	pathLabel, err := s.computePathLabel(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = uuid.NewString()
	u.PathLabel = pathLabel

	if err := s.db.CreateUnit(ctx, u); err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.UnitSaved(u, true, false)
	}
	return u, nil
}

func (s *UnitService) Get(ctx context.Context, id string) (*models.LegalUnit, error) {
	return s.db.GetUnit(ctx, id)
}

func (s *UnitService) ListByExpression(ctx context.Context, exprID string) ([]models.LegalUnit, error) {
	return s.db.ListUnitsByExpression(ctx, exprID)
}

// Update saves the unit and reports whether its content changed, so
// metadata-only edits never trigger reprocessing.
func (s *UnitService) Update(ctx context.Context, u *models.LegalUnit) (*models.LegalUnit, error) {
	existing, err := s.db.GetUnit(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	pathLabel, err := s.computePathLabel(ctx, u)
	if err != nil {
		return nil, err
	}
	u.PathLabel = pathLabel
	u.CreatedAt = existing.CreatedAt

	if err := s.db.UpdateUnit(ctx, u); err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.UnitSaved(u, false, u.Content != existing.Content)
	}
	return u, nil
}

// Delete removes the unit. Its chunks and their embeddings follow via the FK
// cascade; the count is recorded before the delete for the audit trail.
func (s *UnitService) Delete(ctx context.Context, id string) error {
	chunkCount, err := s.db.CountChunksByUnit(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteUnit(ctx, id); err != nil {
		return err
	}
	if s.scheduler != nil {
		s.scheduler.UnitDeleted(id, chunkCount)
	}
	return nil
}

// computePathLabel walks the parent chain upward and joins the labels from
// root to the unit itself.
func (s *UnitService) computePathLabel(ctx context.Context, u *models.LegalUnit) (string, error) {
	labels := []string{u.Label}
	parentID := u.ParentID
	for depth := 0; parentID != ""; depth++ {
		if depth > 32 {
			return "", fmt.Errorf("unit %s: parent chain too deep or cyclic", u.ID)
		}
		parent, err := s.db.GetUnit(ctx, parentID)
		if err != nil {
			return "", fmt.Errorf("parent %s: %w", parentID, err)
		}
		labels = append([]string{parent.Label}, labels...)
		parentID = parent.ParentID
	}
	return strings.Join(labels, pathSeparator), nil
}
