// Package apperr defines the error taxonomy shared across services.
package apperr

import (
	"errors"
	"fmt"

	"github.com/starford/muninn/internal/models"
)

var (
	// ErrNotFound means no file matched the requested id for the
	// requested kind.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat means a matched file lacks the metadata
	// separator and cannot be parsed.
	ErrInvalidFormat = errors.New("invalid record format")
	// ErrValidation means the input failed schema constraints before
	// any file access.
	ErrValidation = errors.New("validation failed")
	// ErrSelfLink means a link's source and target resolve to the
	// identical file.
	ErrSelfLink = errors.New("cannot link a record to itself")
)

// NotFoundError carries the details the legacy not-found messages
// report: which id was asked for and how many records of the kind exist.
type NotFoundError struct {
	Kind  models.Kind
	ID    string
	Total int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found with id %q (%d total)", e.Kind, e.ID, e.Total)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
