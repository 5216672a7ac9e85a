// Package apperr defines the error kinds shared by the catalog, question bank
// and transport layers. Domain errors wrap one of the kind sentinels so callers
// can classify them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that the caller can fix before retrying.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a uniqueness or stale-reference conflict.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a reference to an entity that no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrTransport marks network, timeout or auth failures.
	ErrTransport = errors.New("transport failure")
)

// ValidationError reports the first invalid field of an input.
type ValidationError struct {
	Field  string
	Reason string
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Kind returns the kind sentinel err belongs to, or nil.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrTransport} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
