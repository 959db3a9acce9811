package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pargar-ir/qanun-ingest/internal/models"
	"github.com/pargar-ir/qanun-ingest/internal/services"
)

const maxUploadBytes = 64 << 20

type DocumentHandler struct {
	docs *services.DocumentService
}

func NewDocumentHandler(docs *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func (h *DocumentHandler) CreateWork(w http.ResponseWriter, r *http.Request) {
	var body models.InstrumentWork
	if !decodeBody(w, r, &body) {
		return
	}
	work, err := h.docs.CreateWork(r.Context(), &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, work)
}

func (h *DocumentHandler) GetWork(w http.ResponseWriter, r *http.Request) {
	work, err := h.docs.GetWork(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, work)
}

func (h *DocumentHandler) CreateExpression(w http.ResponseWriter, r *http.Request) {
	var body models.InstrumentExpression
	if !decodeBody(w, r, &body) {
		return
	}
	expr, err := h.docs.CreateExpression(r.Context(), &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expr)
}

func (h *DocumentHandler) GetExpression(w http.ResponseWriter, r *http.Request) {
	expr, err := h.docs.GetExpression(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expr)
}

func (h *DocumentHandler) CreateManifestation(w http.ResponseWriter, r *http.Request) {
	var body models.InstrumentManifestation
	if !decodeBody(w, r, &body) {
		return
	}
	m, err := h.docs.CreateManifestation(r.Context(), &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *DocumentHandler) GetManifestation(w http.ResponseWriter, r *http.Request) {
	m, err := h.docs.GetManifestation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UploadFile attaches a gazette scan to a manifestation via multipart form.
func (h *DocumentHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	asset, err := h.docs.UploadManifestationFile(uploadCtx,
		chi.URLParam(r, "id"), filepath.Base(header.Filename), contentType, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (h *DocumentHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.docs.ListManifestationFiles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}
