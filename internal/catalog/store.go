package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Filter narrows exam listings.
type Filter struct {
	Category Category
	IsActive *bool
}

func (f Filter) match(e Exam) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.IsActive != nil && e.IsActive != *f.IsActive {
		return false
	}
	return true
}

// MutateFunc changes an exam in place and reports whether it changed.
type MutateFunc func(e *Exam) (changed bool, err error)

// Store is the authoritative exam catalog.
type Store interface {
	Create(ctx context.Context, e Exam) (Exam, error)
	Get(ctx context.Context, id string) (Exam, error)
	List(ctx context.Context, f Filter) ([]Exam, error)
	// Update runs fn against the current exam atomically. Nothing is written
	// when fn fails or reports no change; a committed change bumps Version.
	Update(ctx context.Context, id string, fn MutateFunc) (Exam, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	exams map[string]*Exam
	codes map[string]string
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory exam store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams: make(map[string]*Exam),
		codes: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, e Exam) (Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[e.Code]; ok {
		return Exam{}, fmt.Errorf("code %q: %w", e.Code, ErrDuplicateCode)
	}
	stored := e.Clone()
	s.exams[e.ID] = &stored
	s.codes[e.Code] = e.ID
	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrExamNotFound)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Exam, 0, len(s.exams))
	for _, e := range s.exams {
		if f.match(*e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn MutateFunc) (Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrExamNotFound)
	}

	next := current.Clone()
	changed, err := fn(&next)
	if err != nil {
		return Exam{}, err
	}
	if !changed {
		return current.Clone(), nil
	}

	next.ID = current.ID
	next.Code = current.Code
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()
	s.exams[id] = &next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exams[id]
	if !ok {
		return fmt.Errorf("exam %s: %w", id, ErrExamNotFound)
	}
	delete(s.codes, e.Code)
	delete(s.exams, id)
	return nil
}
