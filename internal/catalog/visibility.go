package catalog

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/cbt-admin/internal/naming"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

// VisibilityUpdate targets one subject of a bulk visibility change.
type VisibilityUpdate struct {
	Year      int    `json:"year"`
	Subject   string `json:"subject"`
	IsVisible bool   `json:"isVisible"`
}

// VisibilityResult reports the effect of one update.
type VisibilityResult struct {
	Year      int    `json:"year"`
	Subject   string `json:"subject"`
	IsVisible bool   `json:"isVisible"`
	Changed   bool   `json:"changed"`
}

// BulkResult is the outcome of a committed bulk visibility change.
type BulkResult struct {
	Results []VisibilityResult `json:"results"`
	Summary string             `json:"summary"`
}

// ValidateVisibilityBatch rejects batches that cannot be applied regardless
// of catalog state: empty batches and contradictory duplicates.
func ValidateVisibilityBatch(updates []VisibilityUpdate) error {
	if len(updates) == 0 {
		return apperr.Invalid("updates", "at least one update is required")
	}
	seen := make(map[SubjectRef]bool, len(updates))
	for i, u := range updates {
		if naming.Display(u.Subject) == "" {
			return apperr.Invalid(fmt.Sprintf("updates[%d].subject", i), "is required")
		}
		ref := RefOf(u.Year, u.Subject)
		if prev, ok := seen[ref]; ok && prev != u.IsVisible {
			return apperr.Invalid(fmt.Sprintf("updates[%d]", i),
				"contradicts an earlier update for %d/%s", u.Year, u.Subject)
		}
		seen[ref] = u.IsVisible
	}
	return nil
}

// ApplyVisibility applies a whole batch or nothing. Every unknown pair is
// collected into one InvalidTargetError before anything is changed.
func (e *Exam) ApplyVisibility(updates []VisibilityUpdate) ([]VisibilityResult, error) {
	if err := ValidateVisibilityBatch(updates); err != nil {
		return nil, err
	}

	var missing []Target
	for _, u := range updates {
		if _, ok := e.FindSubject(u.Year, u.Subject); !ok {
			missing = append(missing, Target{Year: u.Year, Subject: u.Subject})
		}
	}
	if len(missing) > 0 {
		return nil, &InvalidTargetError{Targets: missing}
	}

	results := make([]VisibilityResult, 0, len(updates))
	for _, u := range updates {
		changed, err := e.SetSubjectVisibility(u.Year, u.Subject, u.IsVisible)
		if err != nil {
			// Unreachable after the existence pass above.
			return nil, err
		}
		s, _ := e.FindSubject(u.Year, u.Subject)
		results = append(results, VisibilityResult{
			Year:      u.Year,
			Subject:   s.Name,
			IsVisible: u.IsVisible,
			Changed:   changed,
		})
	}
	return results, nil
}

// Summarize describes the concrete effect of a bulk change, e.g.
// "3 subjects hidden, 1 subject shown".
func Summarize(results []VisibilityResult) string {
	var hidden, shown, unchanged int
	for _, r := range results {
		switch {
		case !r.Changed:
			unchanged++
		case r.IsVisible:
			shown++
		default:
			hidden++
		}
	}

	var parts []string
	if hidden > 0 {
		parts = append(parts, plural(hidden, "subject")+" hidden")
	}
	if shown > 0 {
		parts = append(parts, plural(shown, "subject")+" shown")
	}
	if unchanged > 0 {
		parts = append(parts, fmt.Sprintf("%d unchanged", unchanged))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
