package questionbank

import (
	"strings"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

const (
	MinPoints = 1
	MaxPoints = 10
)

// emptyBodies are what the rich-text editor submits for a blank field.
var emptyBodies = map[string]bool{
	"":              true,
	"<p></p>":       true,
	"<p><br></p>":   true,
	"<p><br/></p>":  true,
	"<p><br /></p>": true,
}

// IsEmptyRichText reports whether s is blank or an empty-paragraph sentinel.
func IsEmptyRichText(s string) bool {
	return emptyBodies[strings.TrimSpace(s)]
}

// applyDefaults fills fields the form may leave unset.
func applyDefaults(q *Question) {
	q.Answer = strings.ToUpper(strings.TrimSpace(q.Answer))
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	if q.Points == 0 {
		q.Points = MinPoints
	}
}

// ValidateForSave checks q in a fixed order and returns the first violation.
func ValidateForSave(q Question) error {
	if IsEmptyRichText(q.Body) {
		return apperr.Invalid("question", "is required")
	}

	switch {
	case q.ExamID == "":
		return apperr.Invalid("examId", "is required")
	case q.Year == 0:
		return apperr.Invalid("year", "is required")
	case q.Year < catalog.MinYear || q.Year > catalog.MaxYear:
		return apperr.Invalid("year", "must be between %d and %d", catalog.MinYear, catalog.MaxYear)
	case strings.TrimSpace(q.Level) == "":
		return apperr.Invalid("level", "is required")
	case strings.TrimSpace(q.Subject) == "":
		return apperr.Invalid("subject", "is required")
	case strings.TrimSpace(q.Topic) == "":
		return apperr.Invalid("topic", "is required")
	}

	if err := validateOptions(q.Options); err != nil {
		return err
	}

	if AnswerIndex(q.Answer) < 0 {
		return apperr.Invalid("answer", "must be one of A, B, C or D, got %q", q.Answer)
	}

	if g := q.Group; g != nil {
		if g.StartNumber < 1 || g.EndNumber < 1 {
			return apperr.Invalid("group", "start and end numbers must be positive")
		}
		if g.StartNumber > g.EndNumber {
			return apperr.Invalid("group", "start number %d is after end number %d", g.StartNumber, g.EndNumber)
		}
	}

	if !q.Difficulty.Valid() {
		return apperr.Invalid("difficulty", "must be easy, medium or hard, got %q", q.Difficulty)
	}
	if q.Points < MinPoints || q.Points > MaxPoints {
		return apperr.Invalid("points", "must be between %d and %d, got %d", MinPoints, MaxPoints, q.Points)
	}
	return nil
}

func validateOptions(opts Options) error {
	if len(opts) != OptionCount {
		return apperr.Invalid("options", "exactly %d options are required, got %d", OptionCount, len(opts))
	}
	for i, opt := range opts {
		slot := AnswerLetter(i)
		switch o := opt.(type) {
		case TextOption:
			if strings.TrimSpace(o.Content) == "" {
				return apperr.Invalid("options", "option %s text is empty", slot)
			}
		case ImageOption:
			if strings.TrimSpace(o.URL) == "" {
				return apperr.Invalid("options", "option %s image is missing", slot)
			}
		default:
			return apperr.Invalid("options", "option %s is missing", slot)
		}
	}
	return nil
}
