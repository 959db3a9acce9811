package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

// DocumentService manages the FRBR levels of an instrument: works,
// expressions and manifestations, plus their attached files.
type DocumentService struct {
	db        core.Store
	storage   core.ObjectClient
	bucket    string
	scheduler ProcessScheduler
}

func NewDocumentService(db core.Store, storage core.ObjectClient, bucket string, scheduler ProcessScheduler) *DocumentService {
	return &DocumentService{db: db, storage: storage, bucket: bucket, scheduler: scheduler}
}

func (s *DocumentService) CreateWork(ctx context.Context, w *models.InstrumentWork) (*models.InstrumentWork, error) {
	if strings.TrimSpace(w.TitleOfficial) == "" {
		return nil, fmt.Errorf("title_official is required")
	}
	if strings.TrimSpace(w.LocalSlug) == "" {
		return nil, fmt.Errorf("local_slug is required")
	}
	if _, err := s.db.GetJurisdiction(ctx, w.JurisdictionID); err != nil {
		return nil, fmt.Errorf("jurisdiction %s: %w", w.JurisdictionID, err)
	}
	if _, err := s.db.GetAuthority(ctx, w.AuthorityID); err != nil {
		return nil, fmt.Errorf("authority %s: %w", w.AuthorityID, err)
	}

	w.ID = uuid.NewString()
	if w.DocType == "" {
		w.DocType = models.DocTypeLaw
	}
	if err := s.db.CreateWork(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *DocumentService) GetWork(ctx context.Context, id string) (*models.InstrumentWork, error) {
	return s.db.GetWork(ctx, id)
}

// CreateExpression adds a language/consolidation variant to a work. If the
// expression already carries units (bulk import path) processing is scheduled
// right away.
func (s *DocumentService) CreateExpression(ctx context.Context, e *models.InstrumentExpression) (*models.InstrumentExpression, error) {
	if _, err := s.db.GetWork(ctx, e.WorkID); err != nil {
		return nil, fmt.Errorf("work %s: %w", e.WorkID, err)
	}
	if e.ExpressionDate.IsZero() {
		return nil, fmt.Errorf("expression_date is required")
	}

	e.ID = uuid.NewString()
	if e.Language == "" {
		e.Language = "fa"
	}
	if e.ConsolidationLevel == "" {
		e.ConsolidationLevel = models.ConsolidationBase
	}
	if err := s.db.CreateExpression(ctx, e); err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.ExpressionCreated(ctx, e.ID)
	}
	return e, nil
}

func (s *DocumentService) GetExpression(ctx context.Context, id string) (*models.InstrumentExpression, error) {
	return s.db.GetExpression(ctx, id)
}

func (s *DocumentService) CreateManifestation(ctx context.Context, m *models.InstrumentManifestation) (*models.InstrumentManifestation, error) {
	if _, err := s.db.GetExpression(ctx, m.ExprID); err != nil {
		return nil, fmt.Errorf("expression %s: %w", m.ExprID, err)
	}
	if m.PublicationDate.IsZero() {
		return nil, fmt.Errorf("publication_date is required")
	}
	if m.RepealStatus == "" {
		m.RepealStatus = models.RepealInForce
	}
	if m.RepealStatus == models.RepealRepealed && m.InForceTo == nil {
		return nil, fmt.Errorf("repealed manifestation requires in_force_to")
	}
	if m.InForceFrom != nil && m.InForceTo != nil && m.InForceTo.Before(*m.InForceFrom) {
		return nil, fmt.Errorf("in_force_to precedes in_force_from")
	}

	m.ID = uuid.NewString()
	if err := s.db.CreateManifestation(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *DocumentService) GetManifestation(ctx context.Context, id string) (*models.InstrumentManifestation, error) {
	return s.db.GetManifestation(ctx, id)
}

// UploadManifestationFile stores a gazette scan (or similar) in object
// storage and records it as a FileAsset of the manifestation.
func (s *DocumentService) UploadManifestationFile(ctx context.Context, manifestationID, filename, contentType string, data []byte) (*models.FileAsset, error) {
	if _, err := s.db.GetManifestation(ctx, manifestationID); err != nil {
		return nil, fmt.Errorf("manifestation %s: %w", manifestationID, err)
	}

	fileID := uuid.NewString()
	key := s.objectKey(manifestationID, fileID, filename)
	if _, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	sum := sha256.Sum256(data)
	asset := &models.FileAsset{
		ID:               fileID,
		ManifestationID:  manifestationID,
		Bucket:           s.bucket,
		ObjectKey:        key,
		OriginalFilename: filename,
		ContentType:      contentType,
		SizeBytes:        int64(len(data)),
		SHA256:           hex.EncodeToString(sum[:]),
	}
	if err := s.db.CreateFileAsset(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *DocumentService) ListManifestationFiles(ctx context.Context, manifestationID string) ([]models.FileAsset, error) {
	return s.db.ListFilesByManifestation(ctx, manifestationID)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(manifestationID, fileID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("manifestations", manifestationID, fileID, filename)
}
