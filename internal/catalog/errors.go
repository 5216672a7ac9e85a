package catalog

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

var (
	ErrDuplicateCode    = fmt.Errorf("duplicate exam code: %w", apperr.ErrConflict)
	ErrDuplicateYear    = fmt.Errorf("duplicate year: %w", apperr.ErrConflict)
	ErrDuplicateSubject = fmt.Errorf("duplicate subject: %w", apperr.ErrConflict)
	ErrExamNotFound     = fmt.Errorf("exam %w", apperr.ErrNotFound)
	ErrYearNotFound     = fmt.Errorf("year %w", apperr.ErrNotFound)
	ErrSubjectNotFound  = fmt.Errorf("subject %w", apperr.ErrNotFound)
)

// Target names one (year, subject) pair of a batch.
type Target struct {
	Year    int    `json:"year"`
	Subject string `json:"subject"`
}

func (t Target) String() string {
	return fmt.Sprintf("%d/%s", t.Year, t.Subject)
}

// InvalidTargetError lists every pair of a batch that does not exist in the
// catalog. Targets keeps batch order, so Targets[0] is the first offender.
type InvalidTargetError struct {
	Targets []Target
}

func (e *InvalidTargetError) Error() string {
	names := make([]string, len(e.Targets))
	for i, t := range e.Targets {
		names[i] = t.String()
	}
	return fmt.Sprintf("invalid target %s: %d unknown year/subject pair(s): %s",
		e.Targets[0], len(e.Targets), strings.Join(names, ", "))
}

func (e *InvalidTargetError) Unwrap() error { return apperr.ErrNotFound }
