package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/archive"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/links"
	"github.com/starford/muninn/internal/moc"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
)

// Handler holds API route handlers over the domain services.
type Handler struct {
	notes   *records.Service
	plans   *records.Service
	links   *links.Service
	archive *archive.Service
	moc     *moc.Service
	db      *index.DB
}

// NewHandler creates a new Handler. db may be nil; search, graph and
// backlink routes then report that the index is disabled.
func NewHandler(notes, plans *records.Service, lk *links.Service, ar *archive.Service, mc *moc.Service, db *index.DB) *Handler {
	return &Handler{notes: notes, plans: plans, links: lk, archive: ar, moc: mc, db: db}
}

// svcFor maps a record kind to its service.
func (h *Handler) svcFor(kind models.Kind) *records.Service {
	if kind == models.KindPlan {
		return h.plans
	}
	return h.notes
}

// writeDomainError maps service errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrSelfLink):
		writeJSON(w, http.StatusConflict, errorBody("cannot link a note to itself"))
	case errors.Is(err, apperr.ErrInvalidFormat):
		writeJSON(w, http.StatusConflict, errorBody("record file format is invalid"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListRecords handles GET /notes and GET /plans.
func (h *Handler) ListRecords(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		maxResults, _ := strconv.Atoi(q.Get("max_results"))

		res, err := h.svcFor(kind).List(r.Context(), q.Get("title"), q.Get("id"), maxResults)
		if err != nil {
			writeDomainError(w, err, "list records")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// SaveRecord handles POST /notes and POST /plans.
func (h *Handler) SaveRecord(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
		var req SaveRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		res, err := h.svcFor(kind).Save(r.Context(), req.ID, req.Title, req.Content)
		if err != nil {
			writeDomainError(w, err, "save record")
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// GetRecord handles GET /notes/{id} and GET /plans/{id}.
func (h *Handler) GetRecord(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res, err := h.svcFor(kind).Read(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "get record")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// UpdateRecord handles PUT /notes/{id} and PUT /plans/{id}.
func (h *Handler) UpdateRecord(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
		id := chi.URLParam(r, "id")
		var req UpdateRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		res, err := h.svcFor(kind).Update(r.Context(), id, req.Title, req.Content)
		if err != nil {
			writeDomainError(w, err, "update record")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// DeleteRecord handles DELETE /notes/{id} and DELETE /plans/{id}.
func (h *Handler) DeleteRecord(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := h.svcFor(kind).Delete(r.Context(), id); err != nil {
			writeDomainError(w, err, "delete record")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateLink handles POST /links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.links.Create(r.Context(), req.SourceNoteID, req.TargetNoteID, req.LinkType, req.Description)
	if err != nil {
		writeDomainError(w, err, "create link")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ArchiveItem handles POST /archive.
func (h *Handler) ArchiveItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	kind, err := models.ParseKind(req.ItemType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.archive.Archive(r.Context(), kind, req.ItemID, req.Reason, req.KeepOriginalPrefix)
	if err != nil {
		writeDomainError(w, err, "archive item")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateMOC handles POST /mocs.
func (h *Handler) CreateMOC(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateMOCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.moc.Create(r.Context(), req.Topic, req.NoteIDs, req.Description, req.Category)
	if err != nil {
		writeDomainError(w, err, "create moc")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index is disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	results, err := h.db.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Graph handles GET /graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index is disabled"))
		return
	}
	nodes, edges, err := h.db.Graph()
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if nodes == nil {
		nodes = []index.GraphNode{}
	}
	if edges == nil {
		edges = []index.GraphEdge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "edges": edges})
}

// Backlinks handles GET /backlinks/{id}.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index is disabled"))
		return
	}
	bl, err := h.db.Backlinks(id)
	if err != nil {
		slog.Error("backlinks failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if bl == nil {
		bl = []string{}
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{ID: id, Backlinks: bl})
}
