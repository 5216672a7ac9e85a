package catalog

import (
	"fmt"

	"github.com/p-n-ai/cbt-admin/internal/naming"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

// Bounds of a catalog year.
const (
	MinYear = 1900
	MaxYear = 2100
)

func newSubject(spec SubjectSpec) (Subject, error) {
	name := naming.Display(spec.Name)
	if name == "" {
		return Subject{}, apperr.Invalid("subject.name", "is required")
	}
	if spec.TimeAllocation < 0 {
		return Subject{}, apperr.Invalid("subject.timeAllocation", "must be non-negative")
	}
	return Subject{
		Name:           name,
		QuestionCount:  0,
		IsVisible:      boolOr(spec.IsVisible, true),
		TimeAllocation: spec.TimeAllocation,
		Version:        1,
	}, nil
}

// AddYear appends a year with its seed subjects.
func (e *Exam) AddYear(spec YearSpec) error {
	if spec.Year < MinYear || spec.Year > MaxYear {
		return apperr.Invalid("year", "must be between %d and %d", MinYear, MaxYear)
	}
	if e.yearIndex(spec.Year) >= 0 {
		return fmt.Errorf("year %d: %w", spec.Year, ErrDuplicateYear)
	}

	y := Year{Year: spec.Year, IsAvailable: boolOr(spec.IsAvailable, true), Subjects: []Subject{}}
	for _, ss := range spec.Subjects {
		s, err := newSubject(ss)
		if err != nil {
			return err
		}
		if y.subjectIndex(s.Name) >= 0 {
			return fmt.Errorf("year %d subject %q: %w", spec.Year, s.Name, ErrDuplicateSubject)
		}
		y.Subjects = append(y.Subjects, s)
	}

	e.Years = append(e.Years, y)
	return nil
}

// AddSubject appends a subject to an existing year.
func (e *Exam) AddSubject(year int, spec SubjectSpec) error {
	yi := e.yearIndex(year)
	if yi < 0 {
		return fmt.Errorf("year %d: %w", year, ErrYearNotFound)
	}
	s, err := newSubject(spec)
	if err != nil {
		return err
	}
	y := &e.Years[yi]
	if y.subjectIndex(s.Name) >= 0 {
		return fmt.Errorf("year %d subject %q: %w", year, s.Name, ErrDuplicateSubject)
	}
	y.Subjects = append(y.Subjects, s)
	return nil
}

// SetYearAvailability sets the publication gate of a whole year. Setting the
// current value is a successful no-op.
func (e *Exam) SetYearAvailability(year int, available bool) (bool, error) {
	yi := e.yearIndex(year)
	if yi < 0 {
		return false, fmt.Errorf("year %d: %w", year, ErrYearNotFound)
	}
	if e.Years[yi].IsAvailable == available {
		return false, nil
	}
	e.Years[yi].IsAvailable = available
	return true, nil
}

// SetSubjectVisibility sets the administrator visibility flag of one subject.
// Setting the current value is a successful no-op.
func (e *Exam) SetSubjectVisibility(year int, subject string, visible bool) (bool, error) {
	s, err := e.subject(year, subject)
	if err != nil {
		return false, err
	}
	if s.IsVisible == visible {
		return false, nil
	}
	s.IsVisible = visible
	s.Version++
	return true, nil
}

// RemoveYear drops a year and all of its subjects. Questions that reference
// it are left untouched.
func (e *Exam) RemoveYear(year int) error {
	yi := e.yearIndex(year)
	if yi < 0 {
		return fmt.Errorf("year %d: %w", year, ErrYearNotFound)
	}
	e.Years = append(e.Years[:yi], e.Years[yi+1:]...)
	return nil
}

// RemoveSubject drops one subject of a year.
func (e *Exam) RemoveSubject(year int, subject string) error {
	yi := e.yearIndex(year)
	if yi < 0 {
		return fmt.Errorf("year %d: %w", year, ErrYearNotFound)
	}
	y := &e.Years[yi]
	si := y.subjectIndex(subject)
	if si < 0 {
		return fmt.Errorf("year %d subject %q: %w", year, subject, ErrSubjectNotFound)
	}
	y.Subjects = append(y.Subjects[:si], y.Subjects[si+1:]...)
	return nil
}

// ApplyPatch updates exam details. The code is immutable.
func (e *Exam) ApplyPatch(p ExamPatch) (bool, error) {
	if p.Code != nil && naming.Code(*p.Code) != e.Code {
		return false, apperr.Invalid("code", "is immutable once set")
	}

	next := *e
	if p.Name != nil {
		next.Name = naming.Display(*p.Name)
		if next.Name == "" {
			return false, apperr.Invalid("name", "is required")
		}
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.TimePerQuestion != nil {
		next.TimePerQuestion = *p.TimePerQuestion
	}
	if p.TotalTime != nil {
		next.TotalTime = *p.TotalTime
	}
	if p.PassingPercentage != nil {
		next.PassingPercentage = *p.PassingPercentage
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Instructions != nil {
		next.Instructions = *p.Instructions
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	if p.MinQuestionsPerSubject != nil {
		next.MinQuestionsPerSubject = *p.MinQuestionsPerSubject
	}
	if err := next.validateDetails(); err != nil {
		return false, err
	}

	changed := next.Name != e.Name ||
		next.Category != e.Category ||
		next.TimePerQuestion != e.TimePerQuestion ||
		next.TotalTime != e.TotalTime ||
		next.PassingPercentage != e.PassingPercentage ||
		next.Description != e.Description ||
		next.Instructions != e.Instructions ||
		next.IsActive != e.IsActive ||
		next.MinQuestionsPerSubject != e.MinQuestionsPerSubject
	*e = next
	return changed, nil
}

func (e *Exam) subject(year int, name string) (*Subject, error) {
	yi := e.yearIndex(year)
	if yi < 0 {
		return nil, fmt.Errorf("year %d: %w", year, ErrYearNotFound)
	}
	y := &e.Years[yi]
	si := y.subjectIndex(name)
	if si < 0 {
		return nil, fmt.Errorf("year %d subject %q: %w", year, name, ErrSubjectNotFound)
	}
	return &y.Subjects[si], nil
}
