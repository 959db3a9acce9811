package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/core/chunker"
	"github.com/pargar-ir/qanun-ingest/internal/logger"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// fakeStore is shared by ProcessAll's worker goroutines; every method takes
// the mutex.
type fakeStore struct {
	core.Store

	mu          sync.Mutex
	units       map[string][]models.LegalUnit
	chunks      []models.Chunk
	chunkKeys   map[string]bool
	embeddings  []models.ChunkEmbedding
	logs        map[string]*models.IngestLog
	failForUnit string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		units:     map[string][]models.LegalUnit{},
		chunkKeys: map[string]bool{},
		logs:      map[string]*models.IngestLog{},
	}
}

func (s *fakeStore) InsertChunk(_ context.Context, c *models.Chunk) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failForUnit != "" && c.UnitID == s.failForUnit {
		return false, errors.New("db down")
	}
	key := c.ExprID + "|" + c.Hash
	if s.chunkKeys[key] {
		return false, nil
	}
	s.chunkKeys[key] = true
	s.chunks = append(s.chunks, *c)
	return true, nil
}

func (s *fakeStore) InsertChunkEmbedding(_ context.Context, e *models.ChunkEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings = append(s.embeddings, *e)
	return nil
}

func (s *fakeStore) ListUnitsByExpression(_ context.Context, exprID string) ([]models.LegalUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.units[exprID], nil
}

func (s *fakeStore) ListExpressionIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.units {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) CreateIngestLog(_ context.Context, l *models.IngestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.logs[l.ID] = &cp
	return nil
}

func (s *fakeStore) FinalizeIngestLog(_ context.Context, id string, status models.IngestStatus, processed, failed int, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return core.ErrNotFound
	}
	l.Status = status
	l.RecordsProcessed = processed
	l.RecordsFailed = failed
	l.Metadata = metadata
	now := time.Now()
	l.CompletedAt = &now
	return nil
}

type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (e *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failures > 0 {
		e.failures--
		return nil, errors.New("embedding service unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake-embed-001" }

func newTestProcessor(store *fakeStore, embedder *fakeEmbedder) *Processor {
	split := chunker.New(wordCounter{}, 50, 30, 10)
	return NewProcessor(store, embedder, split, logger.NewNop())
}

func longText(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = fmt.Sprintf("کلمه%d", i)
	}
	return strings.Join(parts, " ")
}

func unitFixture(id, exprID, content string) models.LegalUnit {
	return models.LegalUnit{
		ID:          id,
		ExprID:      exprID,
		UnitType:    models.UnitArticle,
		Label:       "ماده " + id,
		Number:      id,
		Content:     content,
		ELIFragment: "art_" + id,
		XMLID:       "mad" + id,
	}
}

func TestProcessUnitIdempotent(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	p := newTestProcessor(store, emb)

	unit := unitFixture("1", "expr-1", longText(120))

	chunks, embeddings, err := p.ProcessUnit(context.Background(), &unit)
	require.NoError(t, err)
	assert.Greater(t, chunks, 1)
	assert.Equal(t, chunks, embeddings)

	chunks2, embeddings2, err := p.ProcessUnit(context.Background(), &unit)
	require.NoError(t, err)
	assert.Zero(t, chunks2)
	assert.Zero(t, embeddings2)
	assert.Len(t, store.chunks, chunks)
}

func TestProcessUnitEmptyContentNoop(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store, &fakeEmbedder{})

	unit := unitFixture("1", "expr-1", "   \n\t ")
	chunks, embeddings, err := p.ProcessUnit(context.Background(), &unit)
	require.NoError(t, err)
	assert.Zero(t, chunks)
	assert.Zero(t, embeddings)
	assert.Empty(t, store.chunks)
}

func TestProcessUnitCitationPayload(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store, &fakeEmbedder{})

	unit := unitFixture("12", "expr-1", "متن کوتاه ماده")
	_, _, err := p.ProcessUnit(context.Background(), &unit)
	require.NoError(t, err)
	require.Len(t, store.chunks, 1)

	got := store.chunks[0].Citation
	assert.Equal(t, "ماده", got.UnitType)
	assert.Equal(t, "12", got.NumLabel)
	assert.Equal(t, "art_12", got.ELIFragment)
	assert.Equal(t, "mad12", got.XMLID)
}

func TestProcessUnitNumLabelFallsBackToLabel(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store, &fakeEmbedder{})

	unit := unitFixture("7", "expr-1", "تبصره بدون شماره")
	unit.UnitType = models.UnitNote
	unit.Number = ""
	unit.Label = "تبصره"

	_, _, err := p.ProcessUnit(context.Background(), &unit)
	require.NoError(t, err)
	require.Len(t, store.chunks, 1)
	assert.Equal(t, "تبصره", store.chunks[0].Citation.NumLabel)
}

func TestProcessUnitEmbedFailureKeepsChunk(t *testing.T) {
	store := newFakeStore()
	// Batch call fails, then the single-chunk fallback fails too.
	emb := &fakeEmbedder{failures: 2}
	p := newTestProcessor(store, emb)

	unit := unitFixture("1", "expr-1", "متن کوتاه ماده")
	chunks, embeddings, err := p.ProcessUnit(context.Background(), &unit)
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)
	assert.Zero(t, embeddings)
	assert.Len(t, store.chunks, 1)
	assert.Empty(t, store.embeddings)
}

func TestProcessUnitBatchFailureFallsBackPerChunk(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{failures: 1}
	p := newTestProcessor(store, emb)

	unit := unitFixture("1", "expr-1", longText(120))
	chunks, embeddings, err := p.ProcessUnit(context.Background(), &unit)
	require.NoError(t, err)
	assert.Greater(t, chunks, 1)
	assert.Equal(t, chunks, embeddings)
	assert.Equal(t, 1+chunks, emb.calls)
}

func TestCrossUnitDedupWithinExpression(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store, &fakeEmbedder{})

	a := unitFixture("1", "expr-1", "متن تکراری مشترک")
	b := unitFixture("2", "expr-1", "متن تکراری مشترک")

	chunksA, _, err := p.ProcessUnit(context.Background(), &a)
	require.NoError(t, err)
	chunksB, _, err := p.ProcessUnit(context.Background(), &b)
	require.NoError(t, err)

	assert.Equal(t, 1, chunksA)
	assert.Zero(t, chunksB)

	// Different expressions are independent namespaces for the same text.
	c := unitFixture("3", "expr-2", "متن تکراری مشترک")
	chunksC, _, err := p.ProcessUnit(context.Background(), &c)
	require.NoError(t, err)
	assert.Equal(t, 1, chunksC)
}

func TestProcessExpressionPartialFailure(t *testing.T) {
	store := newFakeStore()
	store.units["expr-1"] = []models.LegalUnit{
		unitFixture("1", "expr-1", "متن ماده اول"),
		unitFixture("2", "expr-1", "متن ماده دوم"),
		unitFixture("3", "expr-1", "متن ماده سوم"),
	}
	store.failForUnit = "2"
	p := newTestProcessor(store, &fakeEmbedder{})

	res, err := p.ProcessExpression(context.Background(), "expr-1")
	require.NoError(t, err)

	assert.Equal(t, 2, res.UnitsProcessed)
	assert.Equal(t, 2, res.ChunksCreated)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unit 2")

	require.Len(t, store.logs, 1)
	for _, l := range store.logs {
		assert.Equal(t, models.IngestFailed, l.Status)
		assert.Equal(t, 2, l.RecordsProcessed)
		assert.Equal(t, 1, l.RecordsFailed)
		assert.NotNil(t, l.CompletedAt)
	}
}

func TestProcessExpressionSuccessLog(t *testing.T) {
	store := newFakeStore()
	store.units["expr-1"] = []models.LegalUnit{
		unitFixture("1", "expr-1", "متن ماده اول"),
	}
	p := newTestProcessor(store, &fakeEmbedder{})

	res, err := p.ProcessExpression(context.Background(), "expr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.UnitsProcessed)
	assert.Empty(t, res.Errors)

	for _, l := range store.logs {
		assert.Equal(t, models.IngestSuccess, l.Status)
		assert.Equal(t, "process_expression", l.OperationType)
	}
}

func TestProcessExpressionIdempotent(t *testing.T) {
	store := newFakeStore()
	store.units["expr-1"] = []models.LegalUnit{
		unitFixture("1", "expr-1", longText(120)),
		unitFixture("2", "expr-1", "متن ماده دوم"),
	}
	p := newTestProcessor(store, &fakeEmbedder{})

	first, err := p.ProcessExpression(context.Background(), "expr-1")
	require.NoError(t, err)
	assert.Greater(t, first.ChunksCreated, 1)

	second, err := p.ProcessExpression(context.Background(), "expr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.UnitsProcessed)
	assert.Zero(t, second.ChunksCreated)
	assert.Zero(t, second.EmbeddingsCreated)
	assert.Len(t, store.embeddings, first.EmbeddingsCreated)
}

func TestProcessAllAggregates(t *testing.T) {
	store := newFakeStore()
	store.units["expr-1"] = []models.LegalUnit{unitFixture("1", "expr-1", "متن یک")}
	store.units["expr-2"] = []models.LegalUnit{unitFixture("2", "expr-2", "متن دو")}
	p := newTestProcessor(store, &fakeEmbedder{})

	res, err := p.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.UnitsProcessed)
	assert.Equal(t, 2, res.ChunksCreated)
	assert.Empty(t, res.Errors)
}
