package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/p-n-ai/cbt-admin/internal/platform/metrics"
)

// ListCache caches exam listings. *cache.ReadCache satisfies it.
type ListCache interface {
	Generation(ctx context.Context) (int64, error)
	GetAt(ctx context.Context, gen int64, name string, dst any) (bool, error)
	SetAt(ctx context.Context, gen int64, name string, value any) error
	Invalidate(ctx context.Context) error
}

// ServiceConfig holds dependencies for the catalog service.
type ServiceConfig struct {
	Store               Store
	Cache               ListCache // optional
	DefaultMinQuestions int       // 0 means DefaultMinQuestionsPerSubject
}

// Service exposes catalog operations on top of a Store. Every mutation is
// committed by the store before the fresh exam is returned to the caller.
type Service struct {
	store      Store
	cache      ListCache
	defaultMin int
}

// NewService creates a new catalog service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	defaultMin := cfg.DefaultMinQuestions
	if defaultMin == 0 {
		defaultMin = DefaultMinQuestionsPerSubject
	}
	return &Service{store: store, cache: cfg.Cache, defaultMin: defaultMin}
}

// ListOptions selects exams for listing. Admin listings include inactive
// exams, unavailable years and non-live subjects.
type ListOptions struct {
	Category Category
	IsActive *bool
	Admin    bool
}

func (o ListOptions) cacheKey() string {
	active := "any"
	if o.IsActive != nil {
		active = strconv.FormatBool(*o.IsActive)
	}
	return fmt.Sprintf("list:%s:%s:%t", o.Category, active, o.Admin)
}

// CreateExam validates spec and stores a new exam.
func (s *Service) CreateExam(ctx context.Context, spec ExamSpec) (Exam, error) {
	e, err := NewExam(spec, s.defaultMin)
	if err == nil {
		e, err = s.store.Create(ctx, e)
	}
	s.after(ctx, "create_exam", e.ID, err)
	if err != nil {
		return Exam{}, err
	}
	slog.Info("exam created", "exam_id", e.ID, "code", e.Code)
	return e, nil
}

// GetExam returns the admin view of one exam.
func (s *Service) GetExam(ctx context.Context, id string) (Exam, error) {
	return s.store.Get(ctx, id)
}

// ListExams returns exams matching opts.
func (s *Service) ListExams(ctx context.Context, opts ListOptions) ([]Exam, error) {
	if !opts.Admin {
		active := true
		opts.IsActive = &active
	}

	// The generation is pinned before the store read so a mutation that
	// commits in between invalidates this fill.
	key := opts.cacheKey()
	useCache := s.cache != nil
	var gen int64
	if useCache {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			slog.Warn("exam list cache read failed", "error", err)
			useCache = false
		}
	}
	if useCache {
		var cached []Exam
		found, err := s.cache.GetAt(ctx, gen, key, &cached)
		if err != nil {
			slog.Warn("exam list cache read failed", "error", err)
		} else if found {
			return cached, nil
		}
	}

	exams, err := s.store.List(ctx, Filter{Category: opts.Category, IsActive: opts.IsActive})
	if err != nil {
		return nil, err
	}
	if !opts.Admin {
		for i := range exams {
			exams[i] = exams[i].PublicView()
		}
	}

	if useCache {
		if err := s.cache.SetAt(ctx, gen, key, exams); err != nil {
			slog.Warn("exam list cache write failed", "error", err)
		}
	}
	return exams, nil
}

// UpdateExam edits exam details.
func (s *Service) UpdateExam(ctx context.Context, id string, patch ExamPatch) (Exam, error) {
	return s.mutate(ctx, "update_exam", id, func(e *Exam) (bool, error) {
		return e.ApplyPatch(patch)
	})
}

// AddYear adds a year and its seed subjects.
func (s *Service) AddYear(ctx context.Context, id string, spec YearSpec) (Exam, error) {
	return s.mutate(ctx, "add_year", id, func(e *Exam) (bool, error) {
		return true, e.AddYear(spec)
	})
}

// AddSubject adds a subject to a year.
func (s *Service) AddSubject(ctx context.Context, id string, year int, spec SubjectSpec) (Exam, error) {
	return s.mutate(ctx, "add_subject", id, func(e *Exam) (bool, error) {
		return true, e.AddSubject(year, spec)
	})
}

// SetYearAvailability opens or closes a whole year.
func (s *Service) SetYearAvailability(ctx context.Context, id string, year int, available bool) (Exam, error) {
	return s.mutate(ctx, "set_year_availability", id, func(e *Exam) (bool, error) {
		return e.SetYearAvailability(year, available)
	})
}

// SetSubjectVisibility shows or hides one subject.
func (s *Service) SetSubjectVisibility(ctx context.Context, id string, year int, subject string, visible bool) (Exam, error) {
	return s.mutate(ctx, "set_subject_visibility", id, func(e *Exam) (bool, error) {
		return e.SetSubjectVisibility(year, subject, visible)
	})
}

// BulkUpdateVisibility applies a batch of visibility changes atomically.
func (s *Service) BulkUpdateVisibility(ctx context.Context, id string, updates []VisibilityUpdate) (BulkResult, Exam, error) {
	if err := ValidateVisibilityBatch(updates); err != nil {
		s.after(ctx, "bulk_visibility", id, err)
		return BulkResult{}, Exam{}, err
	}

	var results []VisibilityResult
	e, err := s.mutate(ctx, "bulk_visibility", id, func(e *Exam) (bool, error) {
		var err error
		results, err = e.ApplyVisibility(updates)
		if err != nil {
			return false, err
		}
		for _, r := range results {
			if r.Changed {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return BulkResult{}, Exam{}, err
	}

	res := BulkResult{Results: results, Summary: Summarize(results)}
	slog.Info("bulk visibility applied", "exam_id", id, "summary", res.Summary)
	return res, e, nil
}

// RemoveExam deletes an exam and its whole tree.
func (s *Service) RemoveExam(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	s.after(ctx, "remove_exam", id, err)
	return err
}

// RemoveYear deletes a year and its subjects.
func (s *Service) RemoveYear(ctx context.Context, id string, year int) (Exam, error) {
	return s.mutate(ctx, "remove_year", id, func(e *Exam) (bool, error) {
		return true, e.RemoveYear(year)
	})
}

// RemoveSubject deletes one subject.
func (s *Service) RemoveSubject(ctx context.Context, id string, year int, subject string) (Exam, error) {
	return s.mutate(ctx, "remove_subject", id, func(e *Exam) (bool, error) {
		return true, e.RemoveSubject(year, subject)
	})
}

// StatusReport returns the derived status of every subject of an exam.
func (s *Service) StatusReport(ctx context.Context, id string) ([]SubjectStatus, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.StatusReport(), nil
}

// WriteCounts computes count corrections against the locked exam and applies
// them in the same commit. diff runs while the exam is locked, so it must
// take its question tally there; a tally read earlier could be older than
// one already written. Only count reconciliation calls it.
func (s *Service) WriteCounts(ctx context.Context, id string, diff func(ctx context.Context, e Exam) ([]CountUpdate, error)) ([]CountUpdate, error) {
	var updates []CountUpdate
	_, err := s.mutate(ctx, "write_counts", id, func(e *Exam) (bool, error) {
		var err error
		if updates, err = diff(ctx, *e); err != nil {
			return false, err
		}
		if len(updates) == 0 {
			return false, nil
		}
		return true, e.ApplyCounts(updates)
	})
	if err != nil {
		return nil, err
	}
	if updates == nil {
		updates = []CountUpdate{}
	}
	return updates, nil
}

func (s *Service) mutate(ctx context.Context, op, id string, fn MutateFunc) (Exam, error) {
	e, err := s.store.Update(ctx, id, fn)
	s.after(ctx, op, id, err)
	if err != nil {
		return Exam{}, err
	}
	slog.Info("catalog mutated", "op", op, "exam_id", id, "version", e.Version)
	return e, nil
}

func (s *Service) after(ctx context.Context, op, id string, err error) {
	metrics.CatalogMutation(op, err)
	if err != nil {
		slog.Warn("catalog mutation rejected", "op", op, "exam_id", id, "error", err)
		return
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.Error("exam list cache invalidation failed", "op", op, "error", err)
		}
	}
}
