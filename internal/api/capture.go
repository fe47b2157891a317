package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/capture"
	"github.com/starford/raido/internal/imagestore"
	"github.com/starford/raido/internal/models"
)

const maxImageUpload = 10 << 20 // 10 MB

// CaptureHandler exposes the capture workflow over HTTP.
type CaptureHandler struct {
	session *capture.Session
	images  imagestore.Store
}

// NewCaptureHandler creates a capture handler.
func NewCaptureHandler(session *capture.Session, images imagestore.Store) *CaptureHandler {
	return &CaptureHandler{session: session, images: images}
}

// State handles GET /api/capture.
func (h *CaptureHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// SelectType handles POST /api/capture/type.
func (h *CaptureHandler) SelectType(w http.ResponseWriter, r *http.Request) {
	var req SelectTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.session.SelectType(models.SlipType(req.Type)); err != nil {
		if errors.Is(err, apperr.ErrInvalidState) {
			writeJSON(w, http.StatusConflict, errorBody("recognition in progress"))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// UploadImage handles POST /api/capture/image (multipart/form-data,
// field "file"). The image is stored for preview and then submitted for
// recognition; the call blocks until the recognizer resolves.
func (h *CaptureHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read image"))
		return
	}

	ref, err := h.images.Save(data, filepath.Ext(header.Filename))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if _, err := h.session.AttachImage(r.Context(), data, ref); err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidState):
			// The session never took ownership of the preview; every
			// ref it did accept is reclaimed through the discard hook.
			_ = h.images.Delete(ref)
			writeJSON(w, http.StatusConflict, errorBody("image not accepted in current state"))
		case errors.Is(err, apperr.ErrRecognitionFailed):
			writeJSON(w, http.StatusBadGateway, errorBody("recognition failed"))
		default:
			slog.Error("capture image failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// ServeImage handles GET /api/capture/image/{ref}, the review preview.
func (h *CaptureHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	data, err := h.images.Read(chi.URLParam(r, "ref"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

// SetFields handles PUT /api/capture/fields.
func (h *CaptureHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var fields CaptureFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.session.SetFields(fields); err != nil {
		writeJSON(w, http.StatusConflict, errorBody("no draft under review"))
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// Confirm handles POST /api/capture/confirm.
func (h *CaptureHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	slip, err := h.session.Confirm()
	if err != nil {
		var verr validation.Errors
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr,
			})
		case errors.Is(err, apperr.ErrInvalidState):
			writeJSON(w, http.StatusConflict, errorBody("no draft under review"))
		default:
			slog.Error("capture confirm failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, slip)
}

// Rescan handles POST /api/capture/rescan.
func (h *CaptureHandler) Rescan(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Rescan(); err != nil {
		writeJSON(w, http.StatusConflict, errorBody("no draft under review"))
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// Cancel handles POST /api/capture/cancel.
func (h *CaptureHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.session.Cancel()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}
