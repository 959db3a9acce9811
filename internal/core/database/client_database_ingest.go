package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

// Chunks and embeddings

// InsertChunk inserts the chunk unless a chunk with the same (expr_id, hash)
// already exists. The conflict target makes the dedup atomic under concurrent
// processing. Returns true when a row was inserted.
func (c *DatabaseClient) InsertChunk(ctx context.Context, ch *models.Chunk) (bool, error) {
	if ch == nil {
		return false, errors.New("nil chunk")
	}
	citation, err := json.Marshal(ch.Citation)
	if err != nil {
		return false, fmt.Errorf("marshal citation: %w", err)
	}

	const q = `
		INSERT INTO chunks
			(id, expr_id, unit_id, chunk_text, token_count, overlap_prev, citation_payload, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (expr_id, hash) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, q,
		ch.ID, ch.ExprID, ch.UnitID, ch.ChunkText, ch.TokenCount, ch.OverlapPrev, citation, ch.Hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *DatabaseClient) InsertChunkEmbedding(ctx context.Context, e *models.ChunkEmbedding) error {
	if e == nil {
		return errors.New("nil embedding")
	}
	const q = `
		INSERT INTO chunk_embeddings (id, chunk_id, model, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chunk_id, model) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, q, e.ID, e.ChunkID, e.Model, pgvector.NewVector(e.Embedding))
	return err
}

// CleanupDuplicateChunks removes chunks that share (expr_id, hash) with an
// earlier row, keeping the earliest created_at. Embeddings of removed chunks
// go with them via the FK cascade. Returns the number of chunks deleted.
func (c *DatabaseClient) CleanupDuplicateChunks(ctx context.Context) (int, error) {
	const q = `
		DELETE FROM chunks WHERE id IN (
			SELECT id FROM (
				SELECT id, row_number() OVER (
					PARTITION BY expr_id, hash ORDER BY created_at, id
				) AS rn
				FROM chunks
			) ranked
			WHERE ranked.rn > 1
		)
	`
	res, err := c.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// SearchChunks returns the chunks nearest to queryVec by cosine distance.
func (c *DatabaseClient) SearchChunks(ctx context.Context, queryVec []float32, limit int) ([]models.ChunkMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT ch.id, ch.expr_id, ch.unit_id, ch.chunk_text, ch.token_count,
		       ch.overlap_prev, ch.citation_payload, ch.hash, ch.created_at,
		       ce.embedding <=> $1 AS distance
		FROM chunk_embeddings ce
		JOIN chunks ch ON ch.id = ce.chunk_id
		ORDER BY ce.embedding <=> $1
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChunkMatch
	for rows.Next() {
		var m models.ChunkMatch
		var citation []byte
		if err := rows.Scan(
			&m.Chunk.ID, &m.Chunk.ExprID, &m.Chunk.UnitID, &m.Chunk.ChunkText,
			&m.Chunk.TokenCount, &m.Chunk.OverlapPrev, &citation, &m.Chunk.Hash,
			&m.Chunk.CreatedAt, &m.Distance,
		); err != nil {
			return nil, err
		}
		if len(citation) > 0 {
			if err := json.Unmarshal(citation, &m.Chunk.Citation); err != nil {
				return nil, fmt.Errorf("unmarshal citation: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ingest log

func (c *DatabaseClient) CreateIngestLog(ctx context.Context, l *models.IngestLog) error {
	if l == nil {
		return errors.New("nil ingest log")
	}
	metadata, err := marshalJSONMap(l.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO ingest_logs
			(id, operation_type, source_system, status, records_processed,
			 records_failed, error_message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = c.db.ExecContext(ctx, q,
		l.ID, l.OperationType, l.SourceSystem, l.Status,
		l.RecordsProcessed, l.RecordsFailed, l.ErrorMessage, metadata)
	return err
}

func (c *DatabaseClient) FinalizeIngestLog(ctx context.Context, id string, status models.IngestStatus, processed, failed int, metadata map[string]any) error {
	meta, err := marshalJSONMap(metadata)
	if err != nil {
		return err
	}
	const q = `
		UPDATE ingest_logs SET
			status = $2, records_processed = $3, records_failed = $4,
			metadata = $5, completed_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status, processed, failed, meta)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Sync jobs

func (c *DatabaseClient) CreateSyncJob(ctx context.Context, j *models.SyncJob) error {
	if j == nil {
		return errors.New("nil sync job")
	}
	preview, err := marshalJSONMap(j.PayloadPreview)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO sync_jobs
			(id, job_type, target_id, payload_preview, status, last_error,
			 retry_count, max_retries, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = c.db.ExecContext(ctx, q,
		j.ID, j.JobType, j.TargetID, preview, j.Status, j.LastError,
		j.RetryCount, j.MaxRetries, j.NextRetryAt)
	return err
}

const syncJobColumns = `
	id, job_type, target_id, payload_preview, status, last_error,
	retry_count, max_retries, next_retry_at, completed_at, created_at, updated_at
`

func scanSyncJob(row interface{ Scan(...any) error }) (*models.SyncJob, error) {
	var j models.SyncJob
	var preview []byte
	err := row.Scan(
		&j.ID, &j.JobType, &j.TargetID, &preview, &j.Status, &j.LastError,
		&j.RetryCount, &j.MaxRetries, &j.NextRetryAt, &j.CompletedAt,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(preview) > 0 {
		if err := json.Unmarshal(preview, &j.PayloadPreview); err != nil {
			return nil, fmt.Errorf("unmarshal payload preview: %w", err)
		}
	}
	return &j, nil
}

func (c *DatabaseClient) GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error) {
	q := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE id = $1`
	j, err := scanSyncJob(c.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return j, err
}

func (c *DatabaseClient) UpdateSyncJob(ctx context.Context, j *models.SyncJob) error {
	if j == nil {
		return errors.New("nil sync job")
	}
	preview, err := marshalJSONMap(j.PayloadPreview)
	if err != nil {
		return err
	}
	const q = `
		UPDATE sync_jobs SET
			job_type = $2, target_id = $3, payload_preview = $4, status = $5,
			last_error = $6, retry_count = $7, max_retries = $8,
			next_retry_at = $9, completed_at = $10, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		j.ID, j.JobType, j.TargetID, preview, j.Status,
		j.LastError, j.RetryCount, j.MaxRetries,
		j.NextRetryAt, j.CompletedAt)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DueSyncJobs returns jobs ready to attempt: pending jobs, plus errored jobs
// with retry budget whose next_retry_at has passed.
func (c *DatabaseClient) DueSyncJobs(ctx context.Context, now time.Time, limit int) ([]models.SyncJob, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT ` + syncJobColumns + `
		FROM sync_jobs
		WHERE status = 'pending'
		   OR (status = 'error' AND retry_count < max_retries
		       AND next_retry_at IS NOT NULL AND next_retry_at <= $1)
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SyncJob
	for rows.Next() {
		j, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// Files and QA

func (c *DatabaseClient) CreateFileAsset(ctx context.Context, f *models.FileAsset) error {
	if f == nil {
		return errors.New("nil file asset")
	}
	const q = `
		INSERT INTO file_assets
			(id, manifestation_id, unit_id, bucket, object_key,
			 original_filename, content_type, size_bytes, sha256)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.ExecContext(ctx, q,
		f.ID, f.ManifestationID, f.UnitID, f.Bucket, f.ObjectKey,
		f.OriginalFilename, f.ContentType, f.SizeBytes, f.SHA256)
	return err
}

func (c *DatabaseClient) ListFilesByManifestation(ctx context.Context, manifestationID string) ([]models.FileAsset, error) {
	const q = `
		SELECT id, COALESCE(manifestation_id::text, ''), COALESCE(unit_id::text, ''),
		       bucket, object_key, original_filename, content_type, size_bytes,
		       sha256, created_at, updated_at
		FROM file_assets WHERE manifestation_id = $1 ORDER BY created_at
	`
	rows, err := c.db.QueryContext(ctx, q, manifestationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FileAsset
	for rows.Next() {
		var f models.FileAsset
		if err := rows.Scan(
			&f.ID, &f.ManifestationID, &f.UnitID, &f.Bucket, &f.ObjectKey,
			&f.OriginalFilename, &f.ContentType, &f.SizeBytes, &f.SHA256,
			&f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetQAEntry(ctx context.Context, id string) (*models.QAEntry, error) {
	const q = `
		SELECT id, question, answer, status, COALESCE(source_unit_id::text, ''),
		       created_by, reviewed_by, approved_by, created_at, updated_at
		FROM qa_entries WHERE id = $1
	`
	var e models.QAEntry
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.Question, &e.Answer, &e.Status, &e.SourceUnitID,
		&e.CreatedBy, &e.ReviewedBy, &e.ApprovedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	const qt = `
		SELECT t.id, t.vocabulary_id, t.term, t.code, t.description, t.is_active,
		       t.created_at, t.updated_at
		FROM vocabulary_terms t
		JOIN qa_entry_tags g ON g.term_id = t.id
		WHERE g.qa_entry_id = $1
		ORDER BY t.term
	`
	rows, err := c.db.QueryContext(ctx, qt, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t models.VocabularyTerm
		if err := rows.Scan(&t.ID, &t.VocabularyID, &t.Term, &t.Code, &t.Description,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		e.Tags = append(e.Tags, t)
	}
	return &e, rows.Err()
}

func marshalJSONMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}
