package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pargar-ir/qanun-ingest/internal/models"
	"github.com/pargar-ir/qanun-ingest/internal/services"
)

type SyncHandler struct {
	sync *services.SyncService
}

func NewSyncHandler(sync *services.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

func (h *SyncHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JobType  models.SyncJobType `json:"job_type"`
		TargetID string             `json:"target_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	job, err := h.sync.Enqueue(r.Context(), body.JobType, body.TargetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *SyncHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.sync.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// PayloadPreview rebuilds and returns the body a delivery of this job would
// send, for debugging bridge issues without an actual push.
func (h *SyncHandler) PayloadPreview(w http.ResponseWriter, r *http.Request) {
	payload, err := h.sync.Payload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
