package core

import (
	"context"
	"errors"
	"time"

	"github.com/pargar-ir/qanun-ingest/internal/models"
)

// ErrNotFound is returned by Store lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Store defines all persistence operations the services and the pipeline
// need. It abstracts Postgres/pgvector so higher layers never depend on a
// specific DB.
type Store interface {
	// Masterdata
	GetJurisdiction(ctx context.Context, id string) (*models.Jurisdiction, error)
	GetAuthority(ctx context.Context, id string) (*models.IssuingAuthority, error)
	GetVocabulary(ctx context.Context, id string) (*models.Vocabulary, error)

	// FRBR entities
	CreateWork(ctx context.Context, w *models.InstrumentWork) error
	GetWork(ctx context.Context, id string) (*models.InstrumentWork, error)
	CreateExpression(ctx context.Context, e *models.InstrumentExpression) error
	GetExpression(ctx context.Context, id string) (*models.InstrumentExpression, error)
	ListExpressionIDs(ctx context.Context) ([]string, error)
	CreateManifestation(ctx context.Context, m *models.InstrumentManifestation) error
	GetManifestation(ctx context.Context, id string) (*models.InstrumentManifestation, error)

	// Legal units
	CreateUnit(ctx context.Context, u *models.LegalUnit) error
	UpdateUnit(ctx context.Context, u *models.LegalUnit) error
	GetUnit(ctx context.Context, id string) (*models.LegalUnit, error)
	DeleteUnit(ctx context.Context, id string) error
	ListUnitsByExpression(ctx context.Context, exprID string) ([]models.LegalUnit, error)
	CountUnitsByExpression(ctx context.Context, exprID string) (int, error)
	CountChunksByUnit(ctx context.Context, unitID string) (int, error)

	// Chunks and embeddings. InsertChunk is an atomic insert-or-skip on the
	// (expr_id, hash) uniqueness constraint; it reports whether a row was
	// actually inserted.
	InsertChunk(ctx context.Context, c *models.Chunk) (bool, error)
	InsertChunkEmbedding(ctx context.Context, e *models.ChunkEmbedding) error
	CleanupDuplicateChunks(ctx context.Context) (int, error)
	SearchChunks(ctx context.Context, queryVec []float32, limit int) ([]models.ChunkMatch, error)

	// Ingest log
	CreateIngestLog(ctx context.Context, l *models.IngestLog) error
	FinalizeIngestLog(ctx context.Context, id string, status models.IngestStatus,
		processed, failed int, metadata map[string]any) error

	// Sync jobs
	CreateSyncJob(ctx context.Context, j *models.SyncJob) error
	GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error)
	UpdateSyncJob(ctx context.Context, j *models.SyncJob) error
	DueSyncJobs(ctx context.Context, now time.Time, limit int) ([]models.SyncJob, error)

	// Files and QA (sync payload inputs)
	CreateFileAsset(ctx context.Context, f *models.FileAsset) error
	ListFilesByManifestation(ctx context.Context, manifestationID string) ([]models.FileAsset, error)
	GetQAEntry(ctx context.Context, id string) (*models.QAEntry, error)

	Close() error
}

// ObjectClient defines interactions with S3-compatible object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
