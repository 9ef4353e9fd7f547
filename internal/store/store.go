// Package store implements the file-backed record store: filename
// construction, pattern-matched discovery, and most-recent-write-wins
// resolution on top of the vault storage provider.
//
// A record write never reuses a name: the filename embeds the sanitized
// id plus an epoch-millisecond version token, and the current version of
// a logical record is the lexicographically last matching filename.
// Older versions are orphaned history and are never touched here.
package store

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/ident"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/storage"
)

// Store is a record store for one kind, rooted at that kind's vault
// directory. It also owns the per-id advisory locks that serialize
// read-modify-write sequences across the services sharing it.
type Store struct {
	fs   storage.Provider
	kind models.Kind

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a record store for kind on top of fs.
func New(fs storage.Provider, kind models.Kind) *Store {
	return &Store{fs: fs, kind: kind, locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the advisory mutex for id (keyed by its sanitized form,
// matching file discovery) and returns the unlock func. Entries are
// never evicted; a vault holds a bounded set of record ids.
func (s *Store) Lock(id string) func() {
	key := ident.SanitizeID(id)
	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Kind returns the record kind this store manages.
func (s *Store) Kind() models.Kind { return s.kind }

// FileName builds the on-disk name for a new version of id written at
// the given instant: {kind}_{sanitized-id}_{epoch-millis}.md.
func (s *Store) FileName(id string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d.md", s.kind, ident.SanitizeID(id), at.UnixMilli())
}

// RelPath returns the vault-relative path for a file name in this
// store's directory, used as the index key.
func (s *Store) RelPath(name string) string {
	return path.Join(s.kind.Dir(), name)
}

// AllFiles returns every record file of this kind, in directory order.
// The kind directory is created if it does not exist yet.
func (s *Store) AllFiles() ([]string, error) {
	names, err := s.fs.ListDir(s.kind.Dir())
	if err != nil {
		return nil, err
	}
	prefix := string(s.kind) + "_"
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".md") {
			out = append(out, n)
		}
	}
	return out, nil
}

// CountAll returns the number of record files of this kind.
func (s *Store) CountAll() (int, error) {
	names, err := s.AllFiles()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// FindMatching returns the file names whose sanitized-id fragment
// contains sanitize(id) as a substring, newest first. This is the single
// lookup primitive behind every higher operation; substring containment
// means lookups are not necessarily unique and the first element is the
// tie-break of record.
func (s *Store) FindMatching(id string) ([]string, error) {
	names, err := s.AllFiles()
	if err != nil {
		return nil, err
	}
	needle := ident.SanitizeID(id)
	var matches []string
	for _, n := range names {
		if strings.Contains(n, needle) {
			matches = append(matches, n)
		}
	}
	// The embedded epoch-millis token is fixed-width decimal, so a plain
	// string sort orders versions chronologically.
	sort.Strings(matches)
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches, nil
}

// Latest resolves the current version of id: the most recent matching
// file name. A miss returns an apperr.NotFoundError carrying the total
// number of records of this kind.
func (s *Store) Latest(id string) (string, error) {
	matches, err := s.FindMatching(id)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		total, err := s.CountAll()
		if err != nil {
			return "", err
		}
		return "", &apperr.NotFoundError{Kind: s.kind, ID: id, Total: total}
	}
	return matches[0], nil
}

// Read returns the raw content of the named record file.
func (s *Store) Read(name string) (string, error) {
	data, err := s.fs.Read(s.RelPath(name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write atomically writes content to the named record file.
func (s *Store) Write(name, content string) error {
	return s.fs.Write(s.RelPath(name), []byte(content))
}

// Delete removes the named record file.
func (s *Store) Delete(name string) error {
	return s.fs.Delete(s.RelPath(name))
}

// Rename moves a record file to a new name within the kind directory.
func (s *Store) Rename(oldName, newName string) error {
	return s.fs.Rename(s.RelPath(oldName), s.RelPath(newName))
}

// VersionToken extracts the epoch-millis token embedded in a record
// file name, so a rename can preserve the original version ordering.
func VersionToken(name string) string {
	trimmed := strings.TrimSuffix(name, ".md")
	i := strings.LastIndex(trimmed, "_")
	if i < 0 {
		return trimmed
	}
	return trimmed[i+1:]
}
