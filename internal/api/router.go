// Package api exposes the catalog, question bank and taxonomy over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/metrics"
	"github.com/p-n-ai/cbt-admin/internal/questionbank"
	"github.com/p-n-ai/cbt-admin/internal/reconcile"
	"github.com/p-n-ai/cbt-admin/internal/taxonomy"
)

// Config wires the router to its services.
type Config struct {
	Catalog        *catalog.Service
	Bank           *questionbank.Bank
	Reconciler     *reconcile.Reconciler
	Taxonomy       *taxonomy.Tree
	Auth           *Authenticator
	AllowedOrigins []string
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

type server struct {
	catalog  *catalog.Service
	bank     *questionbank.Bank
	sync     *reconcile.Reconciler
	taxonomy *taxonomy.Tree
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) http.Handler {
	s := &server{catalog: cfg.Catalog, bank: cfg.Bank, sync: cfg.Reconciler, taxonomy: cfg.Taxonomy}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/public/exams", s.listPublicExams)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireRole(RoleAdmin))

			r.Route("/exams", func(r chi.Router) {
				r.Get("/", s.listExams)
				r.Post("/", s.createExam)
				r.Route("/{examID}", func(r chi.Router) {
					r.Get("/", s.getExam)
					r.Patch("/", s.updateExam)
					r.Delete("/", s.removeExam)
					r.Post("/years", s.addYear)
					r.Delete("/years/{year}", s.removeYear)
					r.Put("/years/{year}/availability", s.setYearAvailability)
					r.Post("/years/{year}/subjects", s.addSubject)
					r.Delete("/years/{year}/subjects/{subject}", s.removeSubject)
					r.Put("/years/{year}/subjects/{subject}/visibility", s.setSubjectVisibility)
					r.Post("/visibility", s.bulkVisibility)
					r.Post("/sync", s.syncCounts)
					r.Get("/status", s.statusReport)
					r.Get("/orphans", s.orphans)
					r.Get("/report.xlsx", s.statusWorkbook)
				})
			})

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", s.listQuestions)
				r.Post("/", s.createQuestion)
				r.Get("/{questionID}", s.getQuestion)
				r.Put("/{questionID}", s.updateQuestion)
				r.Delete("/{questionID}", s.deleteQuestion)
			})

			r.Route("/taxonomy", func(r chi.Router) {
				r.Get("/", s.taxonomySnapshot)
				r.Get("/levels", s.listLevels)
				r.Post("/levels", s.addLevel)
				r.Delete("/levels/{levelID}", s.removeLevel)
				r.Get("/levels/{levelID}/subjects", s.listTaxonomySubjects)
				r.Post("/levels/{levelID}/subjects", s.addTaxonomySubject)
				r.Delete("/subjects/{subjectID}", s.removeTaxonomySubject)
				r.Get("/subjects/{subjectID}/topics", s.listTopics)
				r.Post("/subjects/{subjectID}/topics", s.addTopic)
				r.Delete("/topics/{topicID}", s.removeTopic)
			})
		})
	})

	return r
}
