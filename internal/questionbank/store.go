package questionbank

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/naming"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

// ErrQuestionNotFound is returned for unknown or deleted questions.
var ErrQuestionNotFound = fmt.Errorf("question not found: %w", apperr.ErrNotFound)

// Filter selects live questions. Empty fields match everything; names match
// by normalized key.
type Filter struct {
	ExamID   string
	ExamName string
	Year     int
	Subject  string
}

func (f Filter) match(q Question) bool {
	switch {
	case q.Deleted():
		return false
	case f.ExamID != "" && q.ExamID != f.ExamID:
		return false
	case f.ExamName != "" && !naming.Equal(q.ExamName, f.ExamName):
		return false
	case f.Year != 0 && q.Year != f.Year:
		return false
	case f.Subject != "" && !naming.Equal(q.Subject, f.Subject):
		return false
	}
	return true
}

// Store persists questions.
type Store interface {
	Create(ctx context.Context, q Question) (Question, error)
	Get(ctx context.Context, id string) (Question, error)
	Update(ctx context.Context, q Question) (Question, error)
	// Delete removes a question and returns it as it was. A soft delete
	// stamps DeletedAt; a hard delete drops the record.
	Delete(ctx context.Context, id string, hard bool) (Question, error)
	List(ctx context.Context, f Filter) ([]Question, error)
	// CountBySubject tallies live questions of an exam per (year, subject).
	CountBySubject(ctx context.Context, examID string) ([]catalog.SubjectCount, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	questions map[string]*Question
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory question store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{questions: make(map[string]*Question)}
}

func (s *MemoryStore) Create(_ context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := q.clone()
	s.questions[q.ID] = &stored
	return stored.clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok || q.Deleted() {
		return Question{}, fmt.Errorf("question %s: %w", id, ErrQuestionNotFound)
	}
	return q.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.questions[q.ID]
	if !ok || current.Deleted() {
		return Question{}, fmt.Errorf("question %s: %w", q.ID, ErrQuestionNotFound)
	}
	stored := q.clone()
	s.questions[q.ID] = &stored
	return stored.clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string, hard bool) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A soft-deleted question can still be purged.
	q, ok := s.questions[id]
	if !ok || (q.Deleted() && !hard) {
		return Question{}, fmt.Errorf("question %s: %w", id, ErrQuestionNotFound)
	}
	removed := q.clone()
	if hard {
		delete(s.questions, id)
		return removed, nil
	}
	now := time.Now().UTC()
	q.DeletedAt = &now
	return removed, nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Question{}
	for _, q := range s.questions {
		if f.match(*q) {
			out = append(out, q.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CountBySubject(_ context.Context, examID string) ([]catalog.SubjectCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[catalog.SubjectRef]int)
	var out []catalog.SubjectCount
	for _, q := range s.questions {
		if q.Deleted() || q.ExamID != examID {
			continue
		}
		ref := catalog.RefOf(q.Year, q.Subject)
		i, ok := index[ref]
		if !ok {
			i = len(out)
			index[ref] = i
			out = append(out, catalog.SubjectCount{Year: q.Year, Subject: q.Subject})
		}
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return naming.Key(out[i].Subject) < naming.Key(out[j].Subject)
	})
	return out, nil
}
