package catalog

import (
	"fmt"

	"github.com/p-n-ai/cbt-admin/internal/naming"
)

// SubjectRef identifies a subject of an exam by year and name match key.
type SubjectRef struct {
	Year int
	Key  string
}

// RefOf builds the reference for a subject name in a year.
func RefOf(year int, subject string) SubjectRef {
	return SubjectRef{Year: year, Key: naming.Key(subject)}
}

// SubjectCount is the number of live questions filed under one
// (year, subject) pair of an exam.
type SubjectCount struct {
	Year    int    `json:"year"`
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// CountUpdate corrects the cached question count of one subject.
type CountUpdate struct {
	Year     int    `json:"year"`
	Subject  string `json:"subject"`
	OldCount int    `json:"oldCount"`
	NewCount int    `json:"newCount"`
}

func tallyMap(tally []SubjectCount) map[SubjectRef]int {
	m := make(map[SubjectRef]int, len(tally))
	for _, c := range tally {
		m[RefOf(c.Year, c.Subject)] += c.Count
	}
	return m
}

// CountDiff lists, in catalog order, every subject whose cached count differs
// from tally. Subjects absent from tally have a true count of zero.
func (e Exam) CountDiff(tally []SubjectCount) []CountUpdate {
	truth := tallyMap(tally)
	var updates []CountUpdate
	for _, y := range e.Years {
		for _, s := range y.Subjects {
			n := truth[RefOf(y.Year, s.Name)]
			if n != s.QuestionCount {
				updates = append(updates, CountUpdate{
					Year:     y.Year,
					Subject:  s.Name,
					OldCount: s.QuestionCount,
					NewCount: n,
				})
			}
		}
	}
	return updates
}

// ApplyCounts writes corrected counts. It is reserved for count
// reconciliation, the only writer of QuestionCount.
func (e *Exam) ApplyCounts(updates []CountUpdate) error {
	for _, u := range updates {
		if u.NewCount < 0 {
			return fmt.Errorf("negative count %d for %d/%s", u.NewCount, u.Year, u.Subject)
		}
		s, err := e.subject(u.Year, u.Subject)
		if err != nil {
			return err
		}
		if s.QuestionCount != u.NewCount {
			s.QuestionCount = u.NewCount
			s.Version++
		}
	}
	return nil
}

// Orphans returns the tally entries that no catalog subject claims.
func (e Exam) Orphans(tally []SubjectCount) []SubjectCount {
	known := make(map[SubjectRef]bool)
	for _, y := range e.Years {
		for _, s := range y.Subjects {
			known[RefOf(y.Year, s.Name)] = true
		}
	}
	var out []SubjectCount
	for _, c := range tally {
		if c.Count > 0 && !known[RefOf(c.Year, c.Subject)] {
			out = append(out, c)
		}
	}
	return out
}
