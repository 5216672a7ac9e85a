package catalog

// Status is the derived publication status of a subject. It is computed on
// read and never stored.
type Status string

const (
	StatusLive             Status = "live"
	StatusHiddenReady      Status = "hidden-ready"
	StatusIncomplete       Status = "incomplete"
	StatusHiddenIncomplete Status = "hidden-incomplete"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusLive, StatusHiddenReady, StatusIncomplete, StatusHiddenIncomplete}

// MeetsMinimum reports whether s has enough questions to publish.
func MeetsMinimum(s Subject, minimum int) bool {
	return s.QuestionCount >= minimum
}

// StatusOf classifies a subject from its visibility flag and question count.
func StatusOf(s Subject, minimum int) Status {
	ready := MeetsMinimum(s, minimum)
	switch {
	case s.IsVisible && ready:
		return StatusLive
	case !s.IsVisible && ready:
		return StatusHiddenReady
	case s.IsVisible:
		return StatusIncomplete
	default:
		return StatusHiddenIncomplete
	}
}

// SubjectStatus is one row of an exam's status report.
type SubjectStatus struct {
	Year          int    `json:"year"`
	YearAvailable bool   `json:"yearAvailable"`
	Subject       string `json:"subject"`
	QuestionCount int    `json:"questionCount"`
	IsVisible     bool   `json:"isVisible"`
	Status        Status `json:"status"`
	Version       int64  `json:"version"`
}

// StatusReport classifies every subject of e in catalog order.
func (e Exam) StatusReport() []SubjectStatus {
	var rows []SubjectStatus
	for _, y := range e.Years {
		for _, s := range y.Subjects {
			rows = append(rows, SubjectStatus{
				Year:          y.Year,
				YearAvailable: y.IsAvailable,
				Subject:       s.Name,
				QuestionCount: s.QuestionCount,
				IsVisible:     s.IsVisible,
				Status:        StatusOf(s, e.MinQuestionsPerSubject),
				Version:       s.Version,
			})
		}
	}
	return rows
}

// PublicView returns the exam as seen outside the admin console: unavailable
// years are dropped and only live subjects remain.
func (e Exam) PublicView() Exam {
	out := e.Clone()
	years := out.Years[:0]
	for _, y := range out.Years {
		if !y.IsAvailable {
			continue
		}
		subjects := y.Subjects[:0]
		for _, s := range y.Subjects {
			if StatusOf(s, e.MinQuestionsPerSubject) == StatusLive {
				subjects = append(subjects, s)
			}
		}
		y.Subjects = subjects
		years = append(years, y)
	}
	out.Years = years
	return out
}
