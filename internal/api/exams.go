package api

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
	"github.com/p-n-ai/cbt-admin/internal/report"
)

// BulkVisibilityRequest is the body of POST /exams/{id}/visibility.
type BulkVisibilityRequest struct {
	Updates []catalog.VisibilityUpdate `json:"updates"`
}

// BulkVisibilityResponse reports each update, a summary and the fresh exam.
type BulkVisibilityResponse struct {
	catalog.BulkResult
	Exam catalog.Exam `json:"exam"`
}

// SyncResponse is the body returned by POST /exams/{id}/sync.
type SyncResponse struct {
	Updates []catalog.CountUpdate `json:"updates"`
}

// OrphansResponse lists question tallies with no catalog subject.
type OrphansResponse struct {
	Orphans []catalog.SubjectCount `json:"orphans"`
}

func (s *server) listPublicExams(w http.ResponseWriter, r *http.Request) {
	exams, err := s.catalog.ListExams(r.Context(), catalog.ListOptions{
		Category: catalog.Category(r.URL.Query().Get("category")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exams)
}

func (s *server) listExams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := catalog.ListOptions{
		Category: catalog.Category(q.Get("category")),
		Admin:    q.Get("admin") == "true",
	}
	if v := q.Get("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, apperr.Invalid("isActive", "must be true or false"))
			return
		}
		opts.IsActive = &active
	}

	exams, err := s.catalog.ListExams(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exams)
}

func (s *server) createExam(w http.ResponseWriter, r *http.Request) {
	var spec catalog.ExamSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.catalog.CreateExam(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *server) getExam(w http.ResponseWriter, r *http.Request) {
	e, err := s.catalog.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *server) updateExam(w http.ResponseWriter, r *http.Request) {
	var patch catalog.ExamPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondExam(w, r)(s.catalog.UpdateExam(r.Context(), chi.URLParam(r, "examID"), patch))
}

func (s *server) removeExam(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.RemoveExam(r.Context(), chi.URLParam(r, "examID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) addYear(w http.ResponseWriter, r *http.Request) {
	var spec catalog.YearSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondExam(w, r)(s.catalog.AddYear(r.Context(), chi.URLParam(r, "examID"), spec))
}

func (s *server) removeYear(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondExam(w, r)(s.catalog.RemoveYear(r.Context(), chi.URLParam(r, "examID"), year))
}

func (s *server) setYearAvailability(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		IsAvailable *bool `json:"isAvailable"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.IsAvailable == nil {
		writeError(w, r, apperr.Invalid("isAvailable", "is required"))
		return
	}
	s.respondExam(w, r)(s.catalog.SetYearAvailability(r.Context(), chi.URLParam(r, "examID"), year, *body.IsAvailable))
}

func (s *server) addSubject(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var spec catalog.SubjectSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondExam(w, r)(s.catalog.AddSubject(r.Context(), chi.URLParam(r, "examID"), year, spec))
}

func (s *server) removeSubject(w http.ResponseWriter, r *http.Request) {
	year, subject, err := subjectParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondExam(w, r)(s.catalog.RemoveSubject(r.Context(), chi.URLParam(r, "examID"), year, subject))
}

func (s *server) setSubjectVisibility(w http.ResponseWriter, r *http.Request) {
	year, subject, err := subjectParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		IsVisible *bool `json:"isVisible"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.IsVisible == nil {
		writeError(w, r, apperr.Invalid("isVisible", "is required"))
		return
	}
	s.respondExam(w, r)(s.catalog.SetSubjectVisibility(r.Context(), chi.URLParam(r, "examID"), year, subject, *body.IsVisible))
}

func (s *server) bulkVisibility(w http.ResponseWriter, r *http.Request) {
	var req BulkVisibilityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, e, err := s.catalog.BulkUpdateVisibility(r.Context(), chi.URLParam(r, "examID"), req.Updates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkVisibilityResponse{BulkResult: res, Exam: e})
}

func (s *server) syncCounts(w http.ResponseWriter, r *http.Request) {
	updates, err := s.sync.SyncCounts(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Updates: updates})
}

func (s *server) statusReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.catalog.StatusReport(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.sync.Orphans(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orphans == nil {
		orphans = []catalog.SubjectCount{}
	}
	writeJSON(w, http.StatusOK, OrphansResponse{Orphans: orphans})
}

func (s *server) statusWorkbook(w http.ResponseWriter, r *http.Request) {
	e, err := s.catalog.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteStatus(&buf, e); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+e.Code+`-status.xlsx"`)
	writeBody(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// respondExam writes the exam returned by a catalog mutation.
func (s *server) respondExam(w http.ResponseWriter, r *http.Request) func(catalog.Exam, error) {
	return func(e catalog.Exam, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, apperr.Invalid("year", "must be a number")
	}
	return year, nil
}

func subjectParams(r *http.Request) (int, string, error) {
	year, err := yearParam(r)
	if err != nil {
		return 0, "", err
	}
	subject, err := url.PathUnescape(chi.URLParam(r, "subject"))
	if err != nil || strings.TrimSpace(subject) == "" {
		return 0, "", apperr.Invalid("subject", "is required")
	}
	return year, subject, nil
}
