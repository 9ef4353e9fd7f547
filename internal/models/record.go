// Package models defines the domain types for Muninn records.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp format written into record headers
// (ISO-8601 with millisecond precision, UTC).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in the canonical header timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Kind is the record kind: note or plan. It determines the filename
// prefix, the id label in the metadata header, and the vault directory.
type Kind string

// Record kinds.
const (
	KindNote Kind = "note"
	KindPlan Kind = "plan"
)

func (k Kind) String() string { return string(k) }

// IDLabel returns the metadata field label for this kind.
func (k Kind) IDLabel() string {
	if k == KindPlan {
		return "Plan ID"
	}
	return "Note ID"
}

// Dir returns the vault directory holding records of this kind.
func (k Kind) Dir() string {
	if k == KindPlan {
		return "plans"
	}
	return "notes"
}

// ParseKind converts a user-supplied item type string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindNote, KindPlan:
		return Kind(s), nil
	}
	return "", fmt.Errorf("invalid item type %q: must be 'note' or 'plan'", s)
}

// Category is the PARA category derived from a record id's prefix.
type Category string

// PARA categories. Uncategorized covers ids with no recognized prefix,
// including the inbox_ staging prefix.
const (
	CategoryProject       Category = "project"
	CategoryArea          Category = "area"
	CategoryResource      Category = "resource"
	CategoryArchive       Category = "archive"
	CategoryUncategorized Category = "uncategorized"
)

// CategoryOf derives the PARA category from a record id.
func CategoryOf(id string) Category {
	switch {
	case strings.HasPrefix(id, "project_"):
		return CategoryProject
	case strings.HasPrefix(id, "area_"):
		return CategoryArea
	case strings.HasPrefix(id, "resource_"):
		return CategoryResource
	case strings.HasPrefix(id, "archive_"):
		return CategoryArchive
	}
	return CategoryUncategorized
}

// paraPrefixes are the id prefixes that archiving may strip or preserve.
var paraPrefixes = []string{"project_", "area_", "resource_", "inbox_"}

// StripPARAPrefix removes a single leading PARA prefix from id, if any.
func StripPARAPrefix(id string) string {
	for _, p := range paraPrefixes {
		if strings.HasPrefix(id, p) {
			return strings.TrimPrefix(id, p)
		}
	}
	return id
}

// HasPARAPrefix reports whether id carries a strippable PARA prefix.
func HasPARAPrefix(id string) bool {
	for _, p := range paraPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// Meta is the metadata header of a record. Timestamps are kept as the
// verbatim strings found in (or written to) the file so that a
// parse/render round trip preserves them exactly.
type Meta struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Created       string `json:"created,omitempty"`
	Updated       string `json:"updated,omitempty"`
	Archived      string `json:"archived,omitempty"`
	ArchiveReason string `json:"archive_reason,omitempty"`
}

// Category derives the PARA category from the record's id.
func (m Meta) Category() Category { return CategoryOf(m.ID) }

// Record is a parsed note or plan: the metadata header plus the
// markdown body after the separator.
type Record struct {
	Meta Meta   `json:"meta"`
	Body string `json:"body"`
}

// FileMeta is a lightweight listing entry for a vault file, used by the
// index sync to detect changes.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
