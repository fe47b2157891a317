package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/slipservice"
)

// Handler holds the slip CRUD and transfer route handlers.
type Handler struct {
	svc *slipservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *slipservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListSlips handles GET /api/slips.
//
//	@Summary		List slips with optional type and search filtering
//	@Tags			slips
//	@Produce		json
//	@Param			type	query		string	false	"Slip type filter"	Enums(all, loading, offloading, fuel)
//	@Param			q		query		string	false	"Search term"
//	@Success		200		{object}	SlipListResponse
//	@Security		BearerAuth
//	@Router			/slips [get]
func (h *Handler) ListSlips(w http.ResponseWriter, r *http.Request) {
	f := query.Filter{
		Type:   r.URL.Query().Get("type"),
		Search: r.URL.Query().Get("q"),
	}
	if f.Type == "" {
		f.Type = query.TypeAll
	}
	slips, summary := h.svc.List(r.Context(), f)
	if slips == nil {
		slips = []models.Slip{}
	}
	writeJSON(w, http.StatusOK, SlipListResponse{Slips: slips, Summary: summary})
}

// CreateSlip handles POST /api/slips.
//
//	@Summary		Create a blank manual slip of the given type
//	@Tags			slips
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSlipRequest	true	"Slip type"
//	@Success		201		{object}	Slip
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slips [post]
func (h *Handler) CreateSlip(w http.ResponseWriter, r *http.Request) {
	var req CreateSlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	t := models.SlipType(req.Type)
	if !t.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown slip type"))
		return
	}
	slip := h.svc.Create(r.Context(), t)
	writeJSON(w, http.StatusCreated, slip)
}

// GetSlip handles GET /api/slips/{id}.
//
//	@Summary		Get a single slip
//	@Tags			slips
//	@Produce		json
//	@Param			id	path		string	true	"Slip ID"
//	@Success		200	{object}	Slip
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slips/{id} [get]
func (h *Handler) GetSlip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slip, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, slip)
}

// UpdateSlip handles PUT /api/slips/{id}.
//
//	@Summary		Replace a slip record wholesale
//	@Tags			slips
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string	true	"Slip ID"
//	@Param			body	body		Slip	true	"Replacement record"
//	@Success		200		{object}	Slip
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slips/{id} [put]
func (h *Handler) UpdateSlip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var slip models.Slip
	if err := json.NewDecoder(r.Body).Decode(&slip); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	updated, err := h.svc.Update(r.Context(), id, slip)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update slip failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteSlip handles DELETE /api/slips/{id}.
//
//	@Summary		Delete a slip
//	@Tags			slips
//	@Param			id	path	string	true	"Slip ID"
//	@Success		204	"Slip deleted"
//	@Security		BearerAuth
//	@Router			/slips/{id} [delete]
func (h *Handler) DeleteSlip(w http.ResponseWriter, r *http.Request) {
	h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/summary.
//
//	@Summary		Per-type aggregation over the whole collection
//	@Tags			slips
//	@Produce		json
//	@Success		200	{object}	SummaryResponse
//	@Security		BearerAuth
//	@Router			/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SummaryResponse{Types: h.svc.SummaryByType(r.Context())})
}

// ImportSlips handles POST /api/import (multipart/form-data, field "file").
//
//	@Summary		Import slips from an uploaded workbook
//	@Tags			transfer
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Workbook (.xlsx)"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) ImportSlips(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	n, err := h.svc.ImportWorkbook(file)
	if err != nil {
		if errors.Is(err, apperr.ErrImportFormat) {
			writeJSON(w, http.StatusBadRequest, errorBody("unreadable workbook"))
		} else {
			slog.Error("import failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: n})
}

// ExportSlips handles GET /api/export.
//
//	@Summary		Download the full collection as a workbook
//	@Tags			transfer
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Success		200	{file}	binary
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) ExportSlips(w http.ResponseWriter, r *http.Request) {
	// Build the workbook before touching the response so a failure can
	// still produce a clean error status.
	var buf bytes.Buffer
	name, err := h.svc.ExportWorkbook(&buf)
	if err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(buf.Bytes())
}
