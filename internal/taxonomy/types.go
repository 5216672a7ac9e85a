// Package taxonomy holds the Level -> Subject -> Topic tree used to tag
// questions. Nodes are selected by id while authoring; questions store names.
package taxonomy

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

// Level is a top-level class such as SS1 or JSS3.
type Level struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Subjects []Subject `json:"subjects,omitempty"`
}

// Subject is a taxonomy subject. It is not the catalog subject of an exam year.
type Subject struct {
	ID      string  `json:"id"`
	LevelID string  `json:"levelId"`
	Name    string  `json:"name"`
	Topics  []Topic `json:"topics,omitempty"`
}

// Topic is a leaf of the taxonomy.
type Topic struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`
	Name      string `json:"name"`
}

// Selection is the set of ids picked in the authoring form.
type Selection struct {
	LevelID   string `json:"levelId"`
	SubjectID string `json:"subjectId"`
	TopicID   string `json:"topicId"`
}

// Names are the resolved display names persisted on a question.
type Names struct {
	Level   string `json:"level"`
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
}

var (
	ErrDuplicateNode = fmt.Errorf("taxonomy node already exists: %w", apperr.ErrConflict)
	ErrNodeNotFound  = fmt.Errorf("taxonomy node not found: %w", apperr.ErrNotFound)
)

// ResolutionError reports a selected id that no longer resolves, or that
// does not sit under the selected parent.
type ResolutionError struct {
	Field  string
	ID     string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("taxonomy %s %q %s", e.Field, e.ID, e.Reason)
}

// Unwrap classifies a stale taxonomy reference as a conflict.
func (e *ResolutionError) Unwrap() error { return apperr.ErrConflict }

// IsResolutionError reports whether err is a taxonomy resolution failure.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
