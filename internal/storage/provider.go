// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/muninn/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root (e.g. "notes/note_x_1700000000000.md").
type Provider interface {
	// ListDir returns the file names directly inside dir, creating the
	// directory if it does not exist yet.
	ListDir(dir string) ([]string, error)
	// ListAll walks the vault and returns metadata for every .md file.
	ListAll() ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Rename moves oldPath to newPath within the vault.
	Rename(oldPath, newPath string) error
	// Root returns the absolute vault root directory.
	Root() string
}
