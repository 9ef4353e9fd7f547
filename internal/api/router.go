package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/muninn/internal/models"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Per-kind record CRUD.
	for _, mount := range []struct {
		prefix string
		kind   models.Kind
	}{
		{"/notes", models.KindNote},
		{"/plans", models.KindPlan},
	} {
		r.Get(mount.prefix, h.ListRecords(mount.kind))
		r.Post(mount.prefix, h.SaveRecord(mount.kind))
		r.Get(mount.prefix+"/{id}", h.GetRecord(mount.kind))
		r.Put(mount.prefix+"/{id}", h.UpdateRecord(mount.kind))
		r.Delete(mount.prefix+"/{id}", h.DeleteRecord(mount.kind))
	}

	// Higher-level operations.
	r.Post("/links", h.CreateLink)
	r.Post("/archive", h.ArchiveItem)
	r.Post("/mocs", h.CreateMOC)

	// Index-backed views.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)
	r.Get("/backlinks/{id}", h.Backlinks)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
