package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/capture"
	"github.com/starford/raido/internal/editsession"
	"github.com/starford/raido/internal/imagestore"
	"github.com/starford/raido/internal/slipservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *slipservice.Service, session *capture.Session, editor *editsession.Editor,
	images imagestore.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {

	h := NewHandler(svc)
	ch := NewCaptureHandler(session, images)
	eh := NewEditHandler(editor, svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Slips CRUD.
	r.Get("/slips", h.ListSlips)
	r.Post("/slips", h.CreateSlip)
	r.Get("/slips/{id}", h.GetSlip)
	r.Put("/slips/{id}", h.UpdateSlip)
	r.Delete("/slips/{id}", h.DeleteSlip)

	// Aggregation.
	r.Get("/summary", h.Summary)

	// Workbook transfer.
	r.Post("/import", h.ImportSlips)
	r.Get("/export", h.ExportSlips)

	// Capture workflow.
	r.Get("/capture", ch.State)
	r.Post("/capture/type", ch.SelectType)
	r.Post("/capture/image", ch.UploadImage)
	r.Get("/capture/image/{ref}", ch.ServeImage)
	r.Put("/capture/fields", ch.SetFields)
	r.Post("/capture/confirm", ch.Confirm)
	r.Post("/capture/rescan", ch.Rescan)
	r.Post("/capture/cancel", ch.Cancel)

	// Inline edit session.
	r.Post("/slips/{id}/edit", eh.Begin)
	r.Get("/edit", eh.Draft)
	r.Put("/edit", eh.Set)
	r.Post("/edit/save", eh.Save)
	r.Post("/edit/cancel", eh.Cancel)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
