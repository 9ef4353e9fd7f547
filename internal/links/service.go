// Package links builds bidirectional "Related Notes" relations between
// two note records: the same bullet (with mirrored endpoints) is
// inserted into both bodies, and both files are rewritten in place with
// a fresh Updated stamp.
package links

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

// DefaultType is the link type used when the caller gives none.
const DefaultType = "related"

// Types are the accepted relationship labels. The label carries no
// semantics beyond being mirrored identically in both directions.
var Types = []string{"related", "references", "builds-on", "part-of", "example-of"}

const relatedHeading = "## related notes"

// Service creates bidirectional links between note records.
type Service struct {
	store *store.Store
	idx   *index.DB
	now   func() time.Time
}

// NewService creates a linking service over the note store. idx may be
// nil.
func NewService(st *store.Store, idx *index.DB) *Service {
	return &Service{store: st, idx: idx, now: time.Now}
}

// Result reports a successful link, naming the resolved (authoritative)
// ids of both endpoints.
type Result struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	LinkType string `json:"link_type"`
}

// MissingEndpointError identifies which endpoint of a link failed to
// resolve.
type MissingEndpointError struct {
	Role string // "source" or "target"
	ID   string
}

func (e *MissingEndpointError) Error() string {
	return fmt.Sprintf("%s note %q not found", e.Role, e.ID)
}

func (e *MissingEndpointError) Unwrap() error { return apperr.ErrNotFound }

// EndpointFormatError reports a malformed header on one endpoint of a
// link.
type EndpointFormatError struct {
	Role string
	ID   string
	Err  error
}

func (e *EndpointFormatError) Error() string {
	return fmt.Sprintf("%s note %q: %v", e.Role, e.ID, e.Err)
}

func (e *EndpointFormatError) Unwrap() error { return e.Err }

// endpoint is one side of a link during construction.
type endpoint struct {
	inputID string
	name    string
	rec     models.Record
}

func (e *endpoint) id() string {
	if e.rec.Meta.ID != "" {
		return e.rec.Meta.ID
	}
	return e.inputID
}

func (e *endpoint) title() string {
	if e.rec.Meta.Title != "" {
		return e.rec.Meta.Title
	}
	return e.id()
}

// Create links sourceID and targetID bidirectionally. linkType defaults
// to "related" and must be one of Types. Both endpoints must resolve to
// existing, distinct files; a self-link (same resolved file) fails
// before either file is touched.
func (s *Service) Create(_ context.Context, sourceID, targetID, linkType, description string) (*Result, error) {
	if err := validation.Validate(sourceID, validation.Required); err != nil {
		return nil, fmt.Errorf("source id: %s: %w", err, apperr.ErrValidation)
	}
	if err := validation.Validate(targetID, validation.Required); err != nil {
		return nil, fmt.Errorf("target id: %s: %w", err, apperr.ErrValidation)
	}
	if linkType == "" {
		linkType = DefaultType
	}
	if err := validation.Validate(linkType, validation.In(toAny(Types)...)); err != nil {
		return nil, fmt.Errorf("link type %q: %s: %w", linkType, err, apperr.ErrValidation)
	}

	unlockSource, unlockTarget := s.lockPair(sourceID, targetID)
	defer unlockSource()
	defer unlockTarget()

	source, err := s.resolve(sourceID, "source")
	if err != nil {
		return nil, err
	}
	target, err := s.resolve(targetID, "target")
	if err != nil {
		return nil, err
	}
	if source.name == target.name {
		return nil, fmt.Errorf("%q and %q resolve to %s: %w", sourceID, targetID, source.name, apperr.ErrSelfLink)
	}

	now := models.FormatTime(s.now())
	if err := s.addBullet(source, target, linkType, description, now); err != nil {
		return nil, err
	}
	if err := s.addBullet(target, source, linkType, description, now); err != nil {
		return nil, err
	}

	return &Result{SourceID: source.id(), TargetID: target.id(), LinkType: linkType}, nil
}

// lockPair acquires both per-id locks in a stable order to avoid
// deadlock between concurrent links with swapped endpoints. Locks are
// keyed by sanitized id, so the comparison and ordering must use the
// sanitized keys: distinct raw ids can share a mutex.
func (s *Service) lockPair(a, b string) (func(), func()) {
	first, second := ident.SanitizeID(a), ident.SanitizeID(b)
	if second < first {
		first, second = second, first
	}
	if first == second {
		unlock := s.store.Lock(first)
		return unlock, func() {}
	}
	return s.store.Lock(first), s.store.Lock(second)
}

// resolve finds the most recent file for id and parses it. A malformed
// header is fatal here: the rewrite would destroy the file's layout.
func (s *Service) resolve(id, role string) (*endpoint, error) {
	name, err := s.store.Latest(id)
	if err != nil {
		return nil, &MissingEndpointError{Role: role, ID: id}
	}
	content, err := s.store.Read(name)
	if err != nil {
		return nil, &MissingEndpointError{Role: role, ID: id}
	}
	rec, err := header.Parse(content, s.store.Kind())
	if err != nil {
		return nil, &EndpointFormatError{Role: role, ID: id, Err: err}
	}
	return &endpoint{inputID: id, name: name, rec: rec}, nil
}

// addBullet inserts the link bullet pointing at other into ep's body and
// rewrites ep's file with the given Updated stamp.
func (s *Service) addBullet(ep, other *endpoint, linkType, description, now string) error {
	bullet := fmt.Sprintf("- [%s](note:%s) (%s)", other.title(), other.id(), linkType)
	if description != "" {
		bullet += " - " + description
	}

	ep.rec.Body = insertRelated(ep.rec.Body, bullet)
	ep.rec.Meta.Updated = now

	rendered := header.Render(ep.rec, s.store.Kind())
	if err := s.store.Write(ep.name, rendered); err != nil {
		return err
	}
	if s.idx != nil {
		_ = s.idx.UpsertRecord(index.RecordRow{
			Path:     s.store.RelPath(ep.name),
			Kind:     string(s.store.Kind()),
			RecordID: ep.rec.Meta.ID,
			Title:    ep.rec.Meta.Title,
			Category: string(ep.rec.Meta.Category()),
			Created:  ep.rec.Meta.Created,
			Updated:  ep.rec.Meta.Updated,
			Archived: ep.rec.Meta.Archived,
			Checksum: checksum.Sum([]byte(rendered)),
		}, ep.rec.Body, header.ExtractRefs(ep.rec.Body))
	}
	return nil
}

// insertRelated places bullet under the case-insensitive "## Related
// Notes" heading: immediately before the next "##" heading (or at end of
// section) when the heading exists, otherwise a new section is prepended
// to the body.
func insertRelated(body, bullet string) string {
	lines := strings.Split(body, "\n")

	headingIdx := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), relatedHeading) {
			headingIdx = i
			break
		}
	}

	if headingIdx < 0 {
		section := []string{"## Related Notes", "", bullet, ""}
		return strings.Join(append(section, lines...), "\n")
	}

	insertAt := headingIdx + 1
	for insertAt < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[insertAt]), "##") {
		insertAt++
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertAt]...)
	out = append(out, bullet)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
