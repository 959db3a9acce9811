package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pargar-ir/qanun-ingest/internal/models"
	"github.com/pargar-ir/qanun-ingest/internal/services"
)

type UnitHandler struct {
	units *services.UnitService
}

func NewUnitHandler(units *services.UnitService) *UnitHandler {
	return &UnitHandler{units: units}
}

func (h *UnitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body models.LegalUnit
	if !decodeBody(w, r, &body) {
		return
	}
	unit, err := h.units.Create(r.Context(), &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (h *UnitHandler) Get(w http.ResponseWriter, r *http.Request) {
	unit, err := h.units.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

func (h *UnitHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body models.LegalUnit
	if !decodeBody(w, r, &body) {
		return
	}
	body.ID = chi.URLParam(r, "id")
	unit, err := h.units.Update(r.Context(), &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

func (h *UnitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.units.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByExpression returns the expression's units in tree order.
func (h *UnitHandler) ListByExpression(w http.ResponseWriter, r *http.Request) {
	units, err := h.units.ListByExpression(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}
