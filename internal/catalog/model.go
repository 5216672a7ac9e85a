// Package catalog holds the Exam -> Year -> Subject tree, the derived
// publication status of its subjects and the stores that persist it.
//
// Mutators on Exam are pure: they change the receiver and report whether
// anything changed. Stores run them inside an atomic read-modify-write so that
// every invariant is checked against authoritative state.
package catalog

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/p-n-ai/cbt-admin/internal/naming"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

// DefaultMinQuestionsPerSubject is used when an exam does not set a threshold.
const DefaultMinQuestionsPerSubject = 15

// Category classifies an exam.
type Category string

const (
	CategorySecondary Category = "secondary"
	CategoryPrimary   Category = "primary"
	CategoryEntrance  Category = "entrance"
	CategoryPostUTME  Category = "post-utme"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySecondary, CategoryPrimary, CategoryEntrance, CategoryPostUTME:
		return true
	}
	return false
}

// Exam is the root of the catalog tree.
type Exam struct {
	ID                     string    `json:"id"`
	Code                   string    `json:"code"`
	Name                   string    `json:"name"`
	Category               Category  `json:"category"`
	TimePerQuestion        int       `json:"timePerQuestion"` // seconds
	TotalTime              int       `json:"totalTime"`       // minutes
	PassingPercentage      int       `json:"passingPercentage"`
	Description            string    `json:"description,omitempty"`
	Instructions           string    `json:"instructions,omitempty"`
	IsActive               bool      `json:"isActive"`
	MinQuestionsPerSubject int       `json:"minimumQuestionsPerSubject"`
	Years                  []Year    `json:"years"`
	Version                int64     `json:"version"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// Year is one sitting of an exam.
type Year struct {
	Year        int       `json:"year"`
	IsAvailable bool      `json:"isAvailable"`
	Subjects    []Subject `json:"subjects"`
}

// Subject is a catalog leaf. QuestionCount is a cache of the question bank
// and is written only by count reconciliation.
type Subject struct {
	Name           string `json:"name"`
	QuestionCount  int    `json:"questionCount"`
	IsVisible      bool   `json:"isVisible"`
	TimeAllocation int    `json:"timeAllocation"` // minutes
	Version        int64  `json:"version"`
}

// ExamSpec is the input of exam creation.
type ExamSpec struct {
	Code                   string   `json:"code"`
	Name                   string   `json:"name"`
	Category               Category `json:"category"`
	TimePerQuestion        int      `json:"timePerQuestion"`
	TotalTime              int      `json:"totalTime"`
	PassingPercentage      int      `json:"passingPercentage"`
	Description            string   `json:"description"`
	Instructions           string   `json:"instructions"`
	IsActive               *bool    `json:"isActive"`
	MinQuestionsPerSubject *int     `json:"minimumQuestionsPerSubject"`
}

// ExamPatch carries the editable exam details. Code is accepted only to
// reject attempts to change it.
type ExamPatch struct {
	Code                   *string   `json:"code,omitempty"`
	Name                   *string   `json:"name,omitempty"`
	Category               *Category `json:"category,omitempty"`
	TimePerQuestion        *int      `json:"timePerQuestion,omitempty"`
	TotalTime              *int      `json:"totalTime,omitempty"`
	PassingPercentage      *int      `json:"passingPercentage,omitempty"`
	Description            *string   `json:"description,omitempty"`
	Instructions           *string   `json:"instructions,omitempty"`
	IsActive               *bool     `json:"isActive,omitempty"`
	MinQuestionsPerSubject *int      `json:"minimumQuestionsPerSubject,omitempty"`
}

// YearSpec is the input of AddYear.
type YearSpec struct {
	Year        int           `json:"year"`
	IsAvailable *bool         `json:"isAvailable"`
	Subjects    []SubjectSpec `json:"subjects"`
}

// SubjectSpec is the input of AddSubject and of each AddYear subject entry.
type SubjectSpec struct {
	Name           string `json:"name"`
	TimeAllocation int    `json:"timeAllocation"`
	IsVisible      *bool  `json:"isVisible"`
}

// NewExam validates spec and builds a new exam with a fresh id. defaultMin
// applies when spec leaves the threshold unset.
func NewExam(spec ExamSpec, defaultMin int) (Exam, error) {
	code := naming.Code(spec.Code)
	switch {
	case code == "":
		return Exam{}, apperr.Invalid("code", "is required")
	case strings.ContainsFunc(code, unicode.IsSpace):
		return Exam{}, apperr.Invalid("code", "must not contain spaces")
	}

	name := naming.Display(spec.Name)
	if name == "" {
		return Exam{}, apperr.Invalid("name", "is required")
	}

	minimum := defaultMin
	if spec.MinQuestionsPerSubject != nil {
		minimum = *spec.MinQuestionsPerSubject
	}

	now := time.Now().UTC()
	e := Exam{
		ID:                     uuid.NewString(),
		Code:                   code,
		Name:                   name,
		Category:               spec.Category,
		TimePerQuestion:        spec.TimePerQuestion,
		TotalTime:              spec.TotalTime,
		PassingPercentage:      spec.PassingPercentage,
		Description:            spec.Description,
		Instructions:           spec.Instructions,
		IsActive:               boolOr(spec.IsActive, true),
		MinQuestionsPerSubject: minimum,
		Years:                  []Year{},
		Version:                1,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := e.validateDetails(); err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (e *Exam) validateDetails() error {
	switch {
	case !e.Category.Valid():
		return apperr.Invalid("category", "unknown category %q", e.Category)
	case e.TimePerQuestion < 0:
		return apperr.Invalid("timePerQuestion", "must be non-negative")
	case e.TotalTime < 0:
		return apperr.Invalid("totalTime", "must be non-negative")
	case e.PassingPercentage < 0 || e.PassingPercentage > 100:
		return apperr.Invalid("passingPercentage", "must be between 0 and 100")
	case e.MinQuestionsPerSubject < 0:
		return apperr.Invalid("minimumQuestionsPerSubject", "must be non-negative")
	}
	return nil
}

// Clone returns a deep copy of e.
func (e Exam) Clone() Exam {
	out := e
	out.Years = make([]Year, len(e.Years))
	for i, y := range e.Years {
		out.Years[i] = y
		out.Years[i].Subjects = append([]Subject(nil), y.Subjects...)
		if out.Years[i].Subjects == nil {
			out.Years[i].Subjects = []Subject{}
		}
	}
	return out
}

// FindYear returns the year entry, if present.
func (e Exam) FindYear(year int) (Year, bool) {
	for _, y := range e.Years {
		if y.Year == year {
			return y, true
		}
	}
	return Year{}, false
}

// FindSubject returns the subject of a year by name, if present.
func (e Exam) FindSubject(year int, name string) (Subject, bool) {
	y, ok := e.FindYear(year)
	if !ok {
		return Subject{}, false
	}
	i := y.subjectIndex(name)
	if i < 0 {
		return Subject{}, false
	}
	return y.Subjects[i], true
}

func (e *Exam) yearIndex(year int) int {
	for i := range e.Years {
		if e.Years[i].Year == year {
			return i
		}
	}
	return -1
}

func (y *Year) subjectIndex(name string) int {
	key := naming.Key(name)
	for i := range y.Subjects {
		if naming.Key(y.Subjects[i].Name) == key {
			return i
		}
	}
	return -1
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
