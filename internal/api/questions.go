package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
	"github.com/p-n-ai/cbt-admin/internal/questionbank"
)

// QuestionList is the body returned by GET /questions.
type QuestionList struct {
	Questions []questionbank.Question `json:"questions"`
	Count     int                     `json:"count"`
}

func (s *server) listQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := questionbank.Filter{
		ExamID:   q.Get("examId"),
		ExamName: q.Get("examName"),
		Subject:  q.Get("subject"),
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, apperr.Invalid("year", "must be a number"))
			return
		}
		f.Year = year
	}

	questions, err := s.bank.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuestionList{Questions: questions, Count: len(questions)})
}

func (s *server) createQuestion(w http.ResponseWriter, r *http.Request) {
	var d questionbank.Draft
	if err := decode(r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.bank.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) getQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.bank.Get(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var d questionbank.Draft
	if err := decode(r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.bank.Update(r.Context(), chi.URLParam(r, "questionID"), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	hard := r.URL.Query().Get("hard") == "true"
	if err := s.bank.Delete(r.Context(), chi.URLParam(r, "questionID"), hard); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
