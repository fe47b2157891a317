package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/editsession"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/slipservice"
)

// EditHandler exposes the inline edit session over HTTP.
type EditHandler struct {
	editor *editsession.Editor
	svc    *slipservice.Service
}

// NewEditHandler creates an edit handler.
func NewEditHandler(editor *editsession.Editor, svc *slipservice.Service) *EditHandler {
	return &EditHandler{editor: editor, svc: svc}
}

// Begin handles POST /api/slips/{id}/edit.
func (h *EditHandler) Begin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slip, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err := h.editor.Begin(slip); err != nil {
		writeJSON(w, http.StatusConflict, errorBody("edit already in progress"))
		return
	}
	writeJSON(w, http.StatusOK, slip)
}

// Draft handles GET /api/edit.
func (h *EditHandler) Draft(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.editor.Draft()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no edit in progress"))
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// Set handles PUT /api/edit.
func (h *EditHandler) Set(w http.ResponseWriter, r *http.Request) {
	var slip models.Slip
	if err := json.NewDecoder(r.Body).Decode(&slip); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.editor.Set(slip); err != nil {
		writeJSON(w, http.StatusConflict, errorBody("no edit in progress"))
		return
	}
	draft, _ := h.editor.Draft()
	writeJSON(w, http.StatusOK, draft)
}

// Save handles POST /api/edit/save.
func (h *EditHandler) Save(w http.ResponseWriter, r *http.Request) {
	saved, err := h.editor.Save(r.Context(), h.svc)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNoEdit):
			writeJSON(w, http.StatusConflict, errorBody("no edit in progress"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		default:
			slog.Error("edit save failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Cancel handles POST /api/edit/cancel.
func (h *EditHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.editor.Cancel()
	w.WriteHeader(http.StatusNoContent)
}
