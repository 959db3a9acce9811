package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/pipeline"
	"github.com/pargar-ir/qanun-ingest/internal/services"
)

const defaultSearchLimit = 10

// IngestHandler exposes the chunk pipeline: explicit processing runs,
// duplicate cleanup, and similarity search over the chunk index.
type IngestHandler struct {
	store     core.Store
	processor *pipeline.Processor
	search    *services.SearchService
}

func NewIngestHandler(store core.Store, processor *pipeline.Processor, search *services.SearchService) *IngestHandler {
	return &IngestHandler{store: store, processor: processor, search: search}
}

func (h *IngestHandler) ProcessExpression(w http.ResponseWriter, r *http.Request) {
	res, err := h.processor.ProcessExpression(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IngestHandler) ProcessUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := h.store.GetUnit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	chunks, embeddings, err := h.processor.ProcessUnit(r.Context(), unit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipeline.Result{
		UnitsProcessed:    1,
		ChunksCreated:     chunks,
		EmbeddingsCreated: embeddings,
	})
}

func (h *IngestHandler) ProcessAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.processor.ProcessAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IngestHandler) CleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	removed, err := h.processor.CleanupDuplicateChunks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// SearchChunks answers GET /api/chunks/search?q=...&limit=N.
func (h *IngestHandler) SearchChunks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q parameter is required"})
		return
	}
	limit := defaultSearchLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	matches, err := h.search.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
