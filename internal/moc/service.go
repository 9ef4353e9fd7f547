// Package moc builds Map of Content notes: curated index records that
// group existing notes by PARA category and link to each of them.
package moc

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/ident"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
)

// DefaultCategory is used when the caller gives no category.
const DefaultCategory = "resource"

// Categories are the accepted MOC categories.
var Categories = []string{"project", "area", "resource", "archive"}

// ErrNoneResolved reports that no requested note id matched an existing
// note, so no MOC was written.
var ErrNoneResolved = fmt.Errorf("no note ids resolved: %w", apperr.ErrNotFound)

// Service creates Map of Content notes on top of the note record
// service.
type Service struct {
	notes *records.Service
	now   func() time.Time
}

// NewService creates a MOC service. notes must be the note-kind record
// service.
func NewService(notes *records.Service) *Service {
	return &Service{notes: notes, now: time.Now}
}

// Result reports a created MOC.
type Result struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	FileName string   `json:"file_name"`
	Included []string `json:"included"`
	Skipped  []string `json:"skipped,omitempty"`
}

// entry is one linked note with its resolved metadata.
type entry struct {
	id       string
	title    string
	category models.Category
}

// Create builds and saves a MOC over noteIDs. Unresolvable ids are
// skipped; if none resolve the call fails without writing anything.
// category must be one of Categories and defaults to "resource".
func (s *Service) Create(ctx context.Context, topic string, noteIDs []string, description, category string) (*Result, error) {
	if err := validation.Validate(topic, validation.Required); err != nil {
		return nil, fmt.Errorf("topic: %s: %w", err, apperr.ErrValidation)
	}
	if err := validation.Validate(noteIDs, validation.Required); err != nil {
		return nil, fmt.Errorf("note ids: %s: %w", err, apperr.ErrValidation)
	}
	if category == "" {
		category = DefaultCategory
	}
	if err := validation.Validate(category, validation.In(toAny(Categories)...)); err != nil {
		return nil, fmt.Errorf("category %q: %s: %w", category, err, apperr.ErrValidation)
	}

	entries, skipped := s.resolve(noteIDs)
	if len(entries) == 0 {
		return nil, ErrNoneResolved
	}

	now := s.now()
	id := fmt.Sprintf("moc_%s_%s_%d", category, ident.SanitizeFilename(topic), now.UnixMilli())
	title := "Map of Content: " + topic
	body := renderBody(topic, description, entries, models.FormatTime(now))

	saved, err := s.notes.Save(ctx, id, title, body)
	if err != nil {
		return nil, err
	}

	included := make([]string, len(entries))
	for i, e := range entries {
		included[i] = e.id
	}
	return &Result{
		ID:       saved.Meta.ID,
		Title:    title,
		FileName: saved.FileName,
		Included: included,
		Skipped:  skipped,
	}, nil
}

// resolve looks up each id's most recent note, keeping input order.
func (s *Service) resolve(noteIDs []string) ([]entry, []string) {
	var entries []entry
	var skipped []string
	for _, id := range noteIDs {
		res, err := s.notes.Read(context.Background(), id)
		if err != nil {
			skipped = append(skipped, id)
			continue
		}
		e := entry{id: id, category: models.CategoryOf(id)}
		if res.Record.Meta.ID != "" {
			e.id = res.Record.Meta.ID
			e.category = res.Record.Meta.Category()
		}
		e.title = res.Record.Meta.Title
		if e.title == "" {
			e.title = e.id
		}
		entries = append(entries, e)
	}
	return entries, skipped
}

var categoryOrder = []models.Category{
	models.CategoryProject,
	models.CategoryArea,
	models.CategoryResource,
	models.CategoryArchive,
	models.CategoryUncategorized,
}

func renderBody(topic, description string, entries []entry, createdAt string) string {
	var b strings.Builder
	if description != "" {
		b.WriteString(description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "This Map of Content (MOC) organizes related notes about %q.\n\n", topic)
	fmt.Fprintf(&b, "**Created:** %s\n", createdAt)
	fmt.Fprintf(&b, "**Total Notes:** %d\n\n---\n\n", len(entries))

	b.WriteString("## Notes by Category\n")
	for _, cat := range categoryOrder {
		var bucket []entry
		for _, e := range entries {
			if e.category == cat {
				bucket = append(bucket, e)
			}
		}
		if len(bucket) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", capFirst(string(cat)))
		for _, e := range bucket {
			fmt.Fprintf(&b, "- [%s](note:%s)\n", e.title, e.id)
		}
	}

	b.WriteString("\n## All Notes\n\n")
	for _, e := range entries {
		if e.category == models.CategoryUncategorized {
			fmt.Fprintf(&b, "- [%s](note:%s)\n", e.title, e.id)
			continue
		}
		fmt.Fprintf(&b, "- [%s](note:%s) (%s)\n", e.title, e.id, e.category)
	}
	return strings.TrimRight(b.String(), "\n")
}

func capFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
