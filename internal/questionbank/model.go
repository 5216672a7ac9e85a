// Package questionbank stores exam questions and enforces their authoring
// contract. Questions reference the catalog and the taxonomy by name.
package questionbank

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

// OptionCount is the number of option slots every question carries.
const OptionCount = 4

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// OptionType tags an option slot on the wire.
type OptionType string

const (
	OptionText  OptionType = "text"
	OptionImage OptionType = "image"
)

// Option is one answer slot: a TextOption or an ImageOption.
type Option interface {
	Type() OptionType
	Value() string
	isOption()
}

// TextOption is a plain text answer.
type TextOption struct {
	Content string
}

func (TextOption) Type() OptionType { return OptionText }
func (o TextOption) Value() string  { return o.Content }
func (TextOption) isOption()        {}

// ImageOption is an answer shown as an image.
type ImageOption struct {
	URL string
}

func (ImageOption) Type() OptionType { return OptionImage }
func (o ImageOption) Value() string  { return o.URL }
func (ImageOption) isOption()        {}

type optionJSON struct {
	Type    OptionType `json:"type"`
	Content string     `json:"content"`
}

// Options is the ordered slot list; index 0 is answer A. A nil entry is a
// missing slot.
type Options []Option

func (o Options) MarshalJSON() ([]byte, error) {
	out := make([]*optionJSON, len(o))
	for i, opt := range o {
		if opt != nil {
			out[i] = &optionJSON{Type: opt.Type(), Content: opt.Value()}
		}
	}
	return json.Marshal(out)
}

func (o *Options) UnmarshalJSON(data []byte) error {
	var raw []*optionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	opts := make(Options, len(raw))
	for i, r := range raw {
		if r == nil {
			continue
		}
		switch r.Type {
		case OptionText:
			opts[i] = TextOption{Content: r.Content}
		case OptionImage:
			opts[i] = ImageOption{URL: r.Content}
		default:
			return apperr.Invalid("options", "option %s has unknown type %q", AnswerLetter(i), r.Type)
		}
	}
	*o = opts
	return nil
}

// AnswerLetter returns the answer key of slot i ("A" for 0).
func AnswerLetter(i int) string {
	return string(rune('A' + i))
}

// AnswerIndex returns the slot an answer key refers to, or -1.
func AnswerIndex(answer string) int {
	if len(answer) != 1 || answer[0] < 'A' || answer[0] >= 'A'+OptionCount {
		return -1
	}
	return int(answer[0] - 'A')
}

// ComprehensionGroup attaches a shared passage to a numbered range of
// questions within a subject. Ranges may overlap across groups.
type ComprehensionGroup struct {
	Title        string `json:"title"`
	Passage      string `json:"passage"`
	PassageImage string `json:"passageImage,omitempty"`
	StartNumber  int    `json:"startNumber"`
	EndNumber    int    `json:"endNumber"`
}

func (g ComprehensionGroup) overlaps(o ComprehensionGroup) bool {
	return g.StartNumber <= o.EndNumber && o.StartNumber <= g.EndNumber
}

// Question is a stored exam question. Exam, year, subject, topic and level
// are held by name.
type Question struct {
	ID          string              `json:"id"`
	ExamID      string              `json:"examId"`
	ExamName    string              `json:"examName"`
	Year        int                 `json:"year"`
	Subject     string              `json:"subject"`
	Topic       string              `json:"topic"`
	Level       string              `json:"level"`
	Body        string              `json:"question"`
	Options     Options             `json:"options"`
	Answer      string              `json:"answer"`
	Difficulty  Difficulty          `json:"difficulty"`
	Points      int                 `json:"points"`
	Explanation string              `json:"explanation,omitempty"`
	Image       string              `json:"image,omitempty"`
	Group       *ComprehensionGroup `json:"group,omitempty"`
	DeletedAt   *time.Time          `json:"deletedAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// IsGrouped reports whether the question carries comprehension metadata.
func (q Question) IsGrouped() bool { return q.Group != nil }

// Deleted reports whether the question was soft-deleted.
func (q Question) Deleted() bool { return q.DeletedAt != nil }

// Triple is the catalog coordinate a question counts towards.
type Triple struct {
	ExamID  string
	Year    int
	Subject string
}

func (t Triple) String() string {
	return fmt.Sprintf("%s/%d/%s", t.ExamID, t.Year, t.Subject)
}

// Triple returns the question's catalog coordinate.
func (q Question) Triple() Triple {
	return Triple{ExamID: q.ExamID, Year: q.Year, Subject: q.Subject}
}

func (q Question) clone() Question {
	out := q
	out.Options = append(Options(nil), q.Options...)
	if q.Group != nil {
		g := *q.Group
		out.Group = &g
	}
	if q.DeletedAt != nil {
		t := *q.DeletedAt
		out.DeletedAt = &t
	}
	return out
}
