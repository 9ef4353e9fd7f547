// Package archive retires note and plan records: the record id gains an
// archive_ prefix, the header is stamped with the archive time and
// reason, and an "## Archive Status" banner section is prepended to the
// body. The file is renamed to match the new id unless renaming is
// disabled in configuration.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/checksum"
	"github.com/starford/muninn/internal/header"
	"github.com/starford/muninn/internal/ident"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/store"
)

const statusHeading = "## Archive Status"

// Service archives records of either kind.
type Service struct {
	stores map[models.Kind]*store.Store
	idx    *index.DB
	rename bool
	now    func() time.Time
}

// NewService creates an archive service over both record stores. idx may
// be nil. renameFiles controls whether the backing file is renamed to
// match the archived id.
func NewService(notes, plans *store.Store, idx *index.DB, renameFiles bool) *Service {
	return &Service{
		stores: map[models.Kind]*store.Store{
			models.KindNote: notes,
			models.KindPlan: plans,
		},
		idx:    idx,
		rename: renameFiles,
		now:    time.Now,
	}
}

// Result reports a completed archive operation.
type Result struct {
	Kind     models.Kind `json:"kind"`
	OldID    string      `json:"old_id"`
	NewID    string      `json:"new_id"`
	Title    string      `json:"title"`
	FileName string      `json:"file_name"`
	Reason   string      `json:"reason,omitempty"`
}

// Archive retires the most recent record matching id. When
// keepOriginalPrefix is set the archived id keeps its PARA prefix under
// the archive_ marker; otherwise the PARA prefix is stripped first. An
// already-archived id is left unchanged.
func (s *Service) Archive(_ context.Context, kind models.Kind, id, reason string, keepOriginalPrefix bool) (*Result, error) {
	if err := validation.Validate(id, validation.Required); err != nil {
		return nil, fmt.Errorf("id: %s: %w", err, apperr.ErrValidation)
	}
	st, ok := s.stores[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q: %w", kind, apperr.ErrValidation)
	}

	unlock := st.Lock(id)
	defer unlock()

	name, err := st.Latest(id)
	if err != nil {
		return nil, err
	}
	content, err := st.Read(name)
	if err != nil {
		return nil, err
	}
	rec, err := header.Parse(content, kind)
	if err != nil {
		return nil, fmt.Errorf("archive %q: %w", id, err)
	}

	oldID := rec.Meta.ID
	if oldID == "" {
		oldID = id
	}
	newID := archivedID(oldID, keepOriginalPrefix)
	now := models.FormatTime(s.now())

	rec.Meta.ID = newID
	rec.Meta.Archived = now
	if reason != "" {
		rec.Meta.ArchiveReason = reason
	}
	if !strings.Contains(rec.Body, statusHeading) {
		rec.Body = statusSection(kind, now, reason) + rec.Body
	}

	rendered := header.Render(rec, kind)
	newName := name
	if s.rename {
		newName = fmt.Sprintf("%s_%s_%s.md", kind, ident.SanitizeID(newID), store.VersionToken(name))
	}

	// Rename first so a write failure leaves one file, not two.
	if newName != name {
		if err := st.Rename(name, newName); err != nil {
			return nil, err
		}
	}
	if err := st.Write(newName, rendered); err != nil {
		return nil, err
	}
	s.reindex(st, name, newName, rec, rendered)

	title := rec.Meta.Title
	if title == "" {
		title = newID
	}
	return &Result{
		Kind:     kind,
		OldID:    oldID,
		NewID:    newID,
		Title:    title,
		FileName: newName,
		Reason:   reason,
	}, nil
}

func (s *Service) reindex(st *store.Store, oldName, newName string, rec models.Record, rendered string) {
	if s.idx == nil {
		return
	}
	if newName != oldName {
		_ = s.idx.DeleteRecord(st.RelPath(oldName))
	}
	_ = s.idx.UpsertRecord(index.RecordRow{
		Path:     st.RelPath(newName),
		Kind:     string(st.Kind()),
		RecordID: rec.Meta.ID,
		Title:    rec.Meta.Title,
		Category: string(rec.Meta.Category()),
		Created:  rec.Meta.Created,
		Updated:  rec.Meta.Updated,
		Archived: rec.Meta.Archived,
		Checksum: checksum.Sum([]byte(rendered)),
	}, rec.Body, header.ExtractRefs(rec.Body))
}

// archivedID computes the id a record carries after archiving.
func archivedID(id string, keepOriginalPrefix bool) string {
	if strings.HasPrefix(id, "archive_") {
		return id
	}
	if keepOriginalPrefix {
		return "archive_" + id
	}
	return "archive_" + models.StripPARAPrefix(id)
}

func statusSection(kind models.Kind, archivedAt, reason string) string {
	subject := "item"
	if kind == models.KindPlan {
		subject = "plan"
	}
	var b strings.Builder
	b.WriteString(statusHeading)
	b.WriteString("\n\n**Archived on:** ")
	b.WriteString(archivedAt)
	b.WriteString("\n")
	if reason != "" {
		b.WriteString("**Reason:** ")
		b.WriteString(reason)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "This %s has been archived and is no longer active. It is kept for reference purposes.\n\n", subject)
	return b.String()
}
