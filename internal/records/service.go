// Package records implements the note/plan CRUD services on top of the
// record store: Save, Read, Update, Delete, and List with typed results.
// Inputs are validated before any file access; domain failures surface
// as typed errors that the render layer turns into the agent-facing
// strings.
package records

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/checksum"
	"github.com/starford/muninn/internal/header"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/store"
)

// DefaultMaxResults caps List output when the caller gives no limit.
const DefaultMaxResults = 50

// Service provides CRUD operations for one record kind.
type Service struct {
	store *store.Store
	idx   *index.DB // optional; nil disables index maintenance
	now   func() time.Time
}

// NewService creates a record service for the given store. idx may be
// nil when no index is attached (tests, one-shot tooling).
func NewService(st *store.Store, idx *index.DB) *Service {
	return &Service{store: st, idx: idx, now: time.Now}
}

// Kind returns the record kind this service manages.
func (s *Service) Kind() models.Kind { return s.store.Kind() }

// Store exposes the underlying record store for sibling services.
func (s *Service) Store() *store.Store { return s.store }

// SaveResult reports a successful Save.
type SaveResult struct {
	Meta     models.Meta `json:"meta"`
	FileName string      `json:"file_name"`
}

// ReadResult is the resolved current version of a record.
type ReadResult struct {
	FileName string        `json:"file_name"`
	Content  string        `json:"content"`
	Record   models.Record `json:"record"`
}

// UpdateResult reports a successful Update.
type UpdateResult struct {
	Meta     models.Meta `json:"meta"`
	FileName string      `json:"file_name"`
}

// DeleteResult reports a successful Delete.
type DeleteResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`
}

// ListEntry is one record in a List result.
type ListEntry struct {
	Meta     models.Meta `json:"meta"`
	FileName string      `json:"file_name"`
}

// ListResult holds the filtered, ordered, truncated listing plus the
// total number of record files of the kind.
type ListResult struct {
	Entries []ListEntry `json:"entries"`
	Total   int         `json:"total"`
}

// Save writes a brand-new version of id. It never checks for existing
// matches: a save always creates a new file with a fresh version token.
func (s *Service) Save(_ context.Context, id, title, content string) (*SaveResult, error) {
	if err := validateRequired(field{"id", id}, field{"title", title}, field{"content", content}); err != nil {
		return nil, err
	}

	now := s.now()
	rec := models.Record{
		Meta: models.Meta{
			ID:      id,
			Title:   title,
			Created: models.FormatTime(now),
		},
		Body: content,
	}
	name := s.store.FileName(id, now)
	rendered := header.Render(rec, s.Kind())
	if err := s.store.Write(name, rendered); err != nil {
		return nil, err
	}
	s.indexUpsert(name, rendered, rec)
	return &SaveResult{Meta: rec.Meta, FileName: name}, nil
}

// Read resolves the most recent matching file and returns its raw
// content. A file that vanished between listing and reading is treated
// as not found, not as an internal failure.
func (s *Service) Read(_ context.Context, id string) (*ReadResult, error) {
	if err := validateRequired(field{"id", id}); err != nil {
		return nil, err
	}
	name, err := s.store.Latest(id)
	if err != nil {
		return nil, err
	}
	content, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &apperr.NotFoundError{Kind: s.Kind(), ID: id}
		}
		return nil, err
	}
	rec, _ := header.Parse(content, s.Kind())
	return &ReadResult{FileName: name, Content: content, Record: rec}, nil
}

// Update rewrites the most recent matching file in place. This is the
// one operation that does not create a new file. Nil title/content mean
// "keep the existing value"; Created is preserved and Updated stamped.
func (s *Service) Update(_ context.Context, id string, title, content *string) (*UpdateResult, error) {
	if err := validateRequired(field{"id", id}); err != nil {
		return nil, err
	}

	unlock := s.store.Lock(id)
	defer unlock()

	name, err := s.store.Latest(id)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.Read(name)
	if err != nil {
		return nil, err
	}
	rec, err := header.Parse(existing, s.Kind())
	if err != nil {
		return nil, err
	}

	if rec.Meta.ID == "" {
		rec.Meta.ID = id
	}
	if title != nil && *title != "" {
		rec.Meta.Title = *title
	}
	if content != nil {
		rec.Body = *content
	}
	now := s.now()
	if rec.Meta.Created == "" {
		rec.Meta.Created = models.FormatTime(now)
	}
	rec.Meta.Updated = models.FormatTime(now)

	rendered := header.Render(rec, s.Kind())
	if err := s.store.Write(name, rendered); err != nil {
		return nil, err
	}
	s.indexUpsert(name, rendered, rec)
	return &UpdateResult{Meta: rec.Meta, FileName: name}, nil
}

// Delete unlinks the most recent matching file. Strictly older versions
// of the same id stay on disk as orphaned history.
func (s *Service) Delete(_ context.Context, id string) (*DeleteResult, error) {
	if err := validateRequired(field{"id", id}); err != nil {
		return nil, err
	}

	unlock := s.store.Lock(id)
	defer unlock()

	name, err := s.store.Latest(id)
	if err != nil {
		return nil, err
	}

	// Best-effort title for the confirmation message; a read failure
	// here must not block the delete.
	title := "Unknown"
	if content, readErr := s.store.Read(name); readErr == nil {
		if t, ok := header.ExtractTitle(content); ok {
			title = t
		}
	}

	if err := s.store.Delete(name); err != nil {
		return nil, err
	}
	if s.idx != nil {
		_ = s.idx.DeleteRecord(s.store.RelPath(name))
	}
	return &DeleteResult{ID: id, Title: title, FileName: name}, nil
}

// List scans every record file of the kind, parses each header, applies
// case-insensitive substring filters on id and title (both must pass
// when both are given), sorts by Created descending, and truncates to
// maxResults (DefaultMaxResults when <= 0). Files that fail to read or
// that lack both id and title are skipped.
func (s *Service) List(_ context.Context, titleFilter, idFilter string, maxResults int) (*ListResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	names, err := s.store.AllFiles()
	if err != nil {
		return nil, err
	}

	titleNeedle := strings.ToLower(titleFilter)
	idNeedle := strings.ToLower(idFilter)

	var entries []ListEntry
	for _, name := range names {
		content, err := s.store.Read(name)
		if err != nil {
			continue
		}
		// Files without a valid header are skipped but still count
		// toward Total.
		rec, err := header.Parse(content, s.Kind())
		if err != nil {
			continue
		}
		if rec.Meta.ID == "" && rec.Meta.Title == "" {
			continue
		}
		if idNeedle != "" && !strings.Contains(strings.ToLower(rec.Meta.ID), idNeedle) {
			continue
		}
		if titleNeedle != "" && !strings.Contains(strings.ToLower(rec.Meta.Title), titleNeedle) {
			continue
		}
		entries = append(entries, ListEntry{Meta: rec.Meta, FileName: name})
	}

	// Most recent first; entries with unparsable Created sort last.
	sort.SliceStable(entries, func(i, j int) bool {
		ti, iOK := parseHeaderTime(entries[i].Meta.Created)
		tj, jOK := parseHeaderTime(entries[j].Meta.Created)
		if iOK != jOK {
			return iOK
		}
		return ti.After(tj)
	})

	if len(entries) > maxResults {
		entries = entries[:maxResults]
	}
	return &ListResult{Entries: entries, Total: len(names)}, nil
}

func parseHeaderTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// indexUpsert mirrors a write into the index, best-effort.
func (s *Service) indexUpsert(name, rendered string, rec models.Record) {
	if s.idx == nil {
		return
	}
	_ = s.idx.UpsertRecord(index.RecordRow{
		Path:     s.store.RelPath(name),
		Kind:     string(s.Kind()),
		RecordID: rec.Meta.ID,
		Title:    rec.Meta.Title,
		Category: string(rec.Meta.Category()),
		Created:  rec.Meta.Created,
		Updated:  rec.Meta.Updated,
		Archived: rec.Meta.Archived,
		Checksum: checksum.Sum([]byte(rendered)),
	}, rec.Body, header.ExtractRefs(rec.Body))
}

// field is one named input checked by validateRequired.
type field struct {
	name, value string
}

// validateRequired rejects blank inputs before any file access. Fields
// are checked in order so the first blank one is always the one
// reported.
func validateRequired(fields ...field) error {
	for _, f := range fields {
		if err := validation.Validate(f.value, validation.Required); err != nil {
			return fmt.Errorf("%s: %s: %w", f.name, err, apperr.ErrValidation)
		}
	}
	return nil
}
