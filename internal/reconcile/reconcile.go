// Package reconcile keeps cached catalog question counts in step with the
// question bank. It is the only writer of Subject.QuestionCount.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/metrics"
)

// Counter tallies live questions per (year, subject) of an exam.
// questionbank.Store satisfies it.
type Counter interface {
	CountBySubject(ctx context.Context, examID string) ([]catalog.SubjectCount, error)
}

// CountWriter applies count corrections. *catalog.Service satisfies it.
type CountWriter interface {
	GetExam(ctx context.Context, id string) (catalog.Exam, error)
	WriteCounts(ctx context.Context, id string, diff func(ctx context.Context, e catalog.Exam) ([]catalog.CountUpdate, error)) ([]catalog.CountUpdate, error)
}

// Reconciler recomputes question counts on demand.
type Reconciler struct {
	catalog CountWriter
	counter Counter
}

// New creates a reconciler.
func New(w CountWriter, c Counter) *Reconciler {
	return &Reconciler{catalog: w, counter: c}
}

// SyncCounts recounts every subject of an exam and writes the corrections in
// one commit. It returns the corrections, empty when counts were already true.
func (r *Reconciler) SyncCounts(ctx context.Context, examID string) ([]catalog.CountUpdate, error) {
	return r.sync(ctx, examID, "manual")
}

// Invalidate is called by the question bank after a membership change.
func (r *Reconciler) Invalidate(ctx context.Context, examID string) error {
	_, err := r.sync(ctx, examID, "question_change")
	return err
}

// Orphans lists question tallies filed under a (year, subject) the exam no
// longer has.
func (r *Reconciler) Orphans(ctx context.Context, examID string) ([]catalog.SubjectCount, error) {
	exam, err := r.catalog.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	tally, err := r.counter.CountBySubject(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("counting questions: %w", err)
	}
	return exam.Orphans(tally), nil
}

// sync tallies questions while the exam is locked, so overlapping runs are
// applied in tally order and the last commit always carries the newest count.
func (r *Reconciler) sync(ctx context.Context, examID, trigger string) ([]catalog.CountUpdate, error) {
	updates, err := r.catalog.WriteCounts(ctx, examID, func(ctx context.Context, e catalog.Exam) ([]catalog.CountUpdate, error) {
		tally, err := r.counter.CountBySubject(ctx, examID)
		if err != nil {
			return nil, fmt.Errorf("counting questions: %w", err)
		}
		return e.CountDiff(tally), nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SyncRun(trigger, len(updates))
	if len(updates) > 0 {
		slog.Info("question counts corrected", "exam_id", examID, "trigger", trigger, "updates", len(updates))
	}
	return updates, nil
}
