package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/core/chunker"
	"github.com/pargar-ir/qanun-ingest/internal/logger"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

const processConcurrency = 4

// Result aggregates one processing run. Errors holds per-unit chunking and
// persistence failures; embedding failures are logged but do not appear here
// because the chunk itself is already durable and can be re-embedded later.
type Result struct {
	UnitsProcessed    int      `json:"units_processed"`
	ChunksCreated     int      `json:"chunks_created"`
	EmbeddingsCreated int      `json:"embeddings_created"`
	Errors            []string `json:"errors,omitempty"`
}

func (r *Result) merge(other Result) {
	r.UnitsProcessed += other.UnitsProcessed
	r.ChunksCreated += other.ChunksCreated
	r.EmbeddingsCreated += other.EmbeddingsCreated
	r.Errors = append(r.Errors, other.Errors...)
}

// Processor turns legal unit content into deduplicated chunks and their
// embeddings.
type Processor struct {
	store    core.Store
	embedder core.EmbeddingProvider
	splitter *chunker.Chunker
	log      *logger.Logger
}

func NewProcessor(store core.Store, embedder core.EmbeddingProvider, splitter *chunker.Chunker, log *logger.Logger) *Processor {
	return &Processor{store: store, embedder: embedder, splitter: splitter, log: log}
}

// ProcessUnit chunks one unit's content, inserts the chunks that are not
// already present for the expression, and embeds the newly inserted ones.
// Units with empty content are a no-op.
func (p *Processor) ProcessUnit(ctx context.Context, unit *models.LegalUnit) (chunksCreated, embeddingsCreated int, err error) {
	if unit == nil {
		return 0, 0, fmt.Errorf("nil unit")
	}
	content := strings.TrimSpace(unit.Content)
	if content == "" {
		return 0, 0, nil
	}
	if unit.ExprID == "" {
		return 0, 0, fmt.Errorf("unit %s has no expression", unit.ID)
	}

	citation := models.Citation{
		UnitType:    unit.UnitType.Display(),
		NumLabel:    unit.Number,
		ELIFragment: unit.ELIFragment,
		XMLID:       unit.XMLID,
	}
	if citation.NumLabel == "" {
		citation.NumLabel = unit.Label
	}

	spans := p.splitter.Split(content)

	var fresh []models.Chunk
	for _, span := range spans {
		sum := sha256.Sum256([]byte(span.Text))
		ch := models.Chunk{
			ID:          uuid.NewString(),
			ExprID:      unit.ExprID,
			UnitID:      unit.ID,
			ChunkText:   span.Text,
			TokenCount:  p.splitter.TokenCount(span.Text),
			OverlapPrev: span.OverlapPrev,
			Citation:    citation,
			Hash:        hex.EncodeToString(sum[:]),
		}

		inserted, err := p.store.InsertChunk(ctx, &ch)
		if err != nil {
			return chunksCreated, embeddingsCreated, fmt.Errorf("insert chunk for unit %s: %w", unit.ID, err)
		}
		if inserted {
			chunksCreated++
			fresh = append(fresh, ch)
		}
	}

	embeddingsCreated = p.embedChunks(ctx, fresh)
	return chunksCreated, embeddingsCreated, nil
}

// embedChunks embeds the given chunks in one batch, falling back to
// per-chunk calls when the batch fails. Failures leave the chunks in place
// without vectors.
func (p *Processor) embedChunks(ctx context.Context, chunks []models.Chunk) int {
	if len(chunks) == 0 || p.embedder == nil {
		return 0
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.ChunkText
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vectors) != len(chunks) {
		if err != nil {
			p.log.Warn("batch embedding failed, retrying per chunk", "count", len(chunks), "error", err)
		} else {
			p.log.Warn("batch embedding count mismatch, retrying per chunk",
				"want", len(chunks), "got", len(vectors))
		}
		return p.embedChunksIndividually(ctx, chunks)
	}

	created := 0
	for i, ch := range chunks {
		if err := p.persistEmbedding(ctx, ch.ID, vectors[i]); err != nil {
			p.log.Error("persist embedding failed", "chunk_id", ch.ID, "error", err)
			continue
		}
		created++
	}
	return created
}

func (p *Processor) embedChunksIndividually(ctx context.Context, chunks []models.Chunk) int {
	created := 0
	for _, ch := range chunks {
		vectors, err := p.embedder.EmbedTexts(ctx, []string{ch.ChunkText})
		if err != nil || len(vectors) != 1 {
			p.log.Error("embedding failed, chunk kept without vector", "chunk_id", ch.ID, "error", err)
			continue
		}
		if err := p.persistEmbedding(ctx, ch.ID, vectors[0]); err != nil {
			p.log.Error("persist embedding failed", "chunk_id", ch.ID, "error", err)
			continue
		}
		created++
	}
	return created
}

func (p *Processor) persistEmbedding(ctx context.Context, chunkID string, vec []float32) error {
	return p.store.InsertChunkEmbedding(ctx, &models.ChunkEmbedding{
		ID:        uuid.NewString(),
		ChunkID:   chunkID,
		Model:     p.embedder.ModelName(),
		Embedding: vec,
	})
}

// ProcessExpression processes every unit of an expression under one ingest
// log entry. A unit failure is recorded and processing continues with the
// remaining units; the run finalizes as failed when any unit failed.
func (p *Processor) ProcessExpression(ctx context.Context, exprID string) (Result, error) {
	var res Result

	logEntry := &models.IngestLog{
		ID:            uuid.NewString(),
		OperationType: "process_expression",
		SourceSystem:  "pipeline",
		Status:        models.IngestProcessing,
		Metadata:      map[string]any{"expr_id": exprID},
	}
	if err := p.store.CreateIngestLog(ctx, logEntry); err != nil {
		return res, fmt.Errorf("create ingest log: %w", err)
	}

	units, err := p.store.ListUnitsByExpression(ctx, exprID)
	if err != nil {
		if ferr := p.finalizeLog(ctx, logEntry.ID, models.IngestFailed, res, exprID, err.Error()); ferr != nil {
			p.log.Error("finalize ingest log failed", "log_id", logEntry.ID, "error", ferr)
		}
		return res, fmt.Errorf("list units: %w", err)
	}

	for i := range units {
		chunks, embeddings, err := p.ProcessUnit(ctx, &units[i])
		res.ChunksCreated += chunks
		res.EmbeddingsCreated += embeddings
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.UnitsProcessed++
	}

	status := models.IngestSuccess
	errMsg := ""
	if len(res.Errors) > 0 {
		status = models.IngestFailed
		errMsg = strings.Join(res.Errors, "; ")
	}
	// Losing the audit record is worse than an incomplete run; surface it.
	if err := p.finalizeLog(ctx, logEntry.ID, status, res, exprID, errMsg); err != nil {
		return res, fmt.Errorf("finalize ingest log: %w", err)
	}

	p.log.Info("expression processed",
		"expr_id", exprID,
		"units", res.UnitsProcessed,
		"chunks", res.ChunksCreated,
		"embeddings", res.EmbeddingsCreated,
		"errors", len(res.Errors))
	return res, nil
}

func (p *Processor) finalizeLog(ctx context.Context, logID string, status models.IngestStatus, res Result, exprID, errMsg string) error {
	metadata := map[string]any{
		"expr_id":            exprID,
		"chunks_created":     res.ChunksCreated,
		"embeddings_created": res.EmbeddingsCreated,
	}
	if errMsg != "" {
		metadata["error"] = errMsg
	}
	return p.store.FinalizeIngestLog(ctx, logID, status, res.UnitsProcessed, len(res.Errors), metadata)
}

// ProcessAll runs ProcessExpression over every expression, a few at a time.
func (p *Processor) ProcessAll(ctx context.Context) (Result, error) {
	ids, err := p.store.ListExpressionIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list expressions: %w", err)
	}

	var (
		mu    sync.Mutex
		total Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(processConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			res, err := p.ProcessExpression(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			total.merge(res)
			if err != nil {
				total.Errors = append(total.Errors, fmt.Sprintf("expression %s: %v", id, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return total, nil
}

// CleanupDuplicateChunks removes redundant chunk rows left over from before
// uniqueness was enforced at insert time.
func (p *Processor) CleanupDuplicateChunks(ctx context.Context) (int, error) {
	removed, err := p.store.CleanupDuplicateChunks(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		p.log.Info("duplicate chunks removed", "count", removed)
	}
	return removed, nil
}
