package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (s *server) taxonomySnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.taxonomy.Snapshot())
}

func (s *server) listLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.taxonomy.Levels())
}

func (s *server) addLevel(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.taxonomy.AddLevel(req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *server) removeLevel(w http.ResponseWriter, r *http.Request) {
	s.respondRemoved(w, r, s.taxonomy.RemoveLevel(chi.URLParam(r, "levelID")))
}

func (s *server) listTaxonomySubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.taxonomy.Subjects(chi.URLParam(r, "levelID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (s *server) addTaxonomySubject(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.taxonomy.AddSubject(chi.URLParam(r, "levelID"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *server) removeTaxonomySubject(w http.ResponseWriter, r *http.Request) {
	s.respondRemoved(w, r, s.taxonomy.RemoveSubject(chi.URLParam(r, "subjectID")))
}

func (s *server) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.taxonomy.Topics(chi.URLParam(r, "subjectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *server) addTopic(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.taxonomy.AddTopic(chi.URLParam(r, "subjectID"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *server) removeTopic(w http.ResponseWriter, r *http.Request) {
	s.respondRemoved(w, r, s.taxonomy.RemoveTopic(chi.URLParam(r, "topicID")))
}

func (s *server) respondRemoved(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
