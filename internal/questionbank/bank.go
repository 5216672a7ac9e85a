package questionbank

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/metrics"
	"github.com/p-n-ai/cbt-admin/internal/taxonomy"
)

// ExamDirectory looks up exams. *catalog.Service satisfies it.
type ExamDirectory interface {
	GetExam(ctx context.Context, id string) (catalog.Exam, error)
}

// Resolver turns taxonomy ids into names. *taxonomy.Tree satisfies it.
type Resolver interface {
	Resolve(sel taxonomy.Selection) (taxonomy.Names, error)
}

// Invalidator is told when the question membership of an exam changed.
// Only it may correct cached catalog counts.
type Invalidator interface {
	Invalidate(ctx context.Context, examID string) error
}

// Draft is the authoring form payload for create and update.
type Draft struct {
	ExamID string `json:"examId"`
	Year   int    `json:"year"`
	taxonomy.Selection
	Body        string              `json:"question"`
	Options     Options             `json:"options"`
	Answer      string              `json:"answer"`
	Difficulty  Difficulty          `json:"difficulty"`
	Points      int                 `json:"points"`
	Explanation string              `json:"explanation"`
	Image       ImageInput          `json:"image"`
	Group       *ComprehensionGroup `json:"group"`
}

// BankConfig holds dependencies for the question bank.
type BankConfig struct {
	Store    Store
	Exams    ExamDirectory
	Taxonomy Resolver
	Counts   Invalidator // optional
}

// Bank validates and stores questions.
type Bank struct {
	store    Store
	exams    ExamDirectory
	taxonomy Resolver
	counts   Invalidator
}

// NewBank creates a question bank.
func NewBank(cfg BankConfig) *Bank {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Bank{store: store, exams: cfg.Exams, taxonomy: cfg.Taxonomy, counts: cfg.Counts}
}

// Create validates d and stores a new question.
func (b *Bank) Create(ctx context.Context, d Draft) (Question, error) {
	q, _, err := b.build(ctx, d, Question{})
	if err == nil {
		now := time.Now().UTC()
		q.ID = uuid.NewString()
		q.CreatedAt, q.UpdatedAt = now, now
		q, err = b.store.Create(ctx, q)
	}
	metrics.QuestionSave("create", err)
	if err != nil {
		return Question{}, err
	}

	slog.Info("question created", "question_id", q.ID, "triple", q.Triple().String())
	b.warnOverlaps(ctx, q)
	b.signal(ctx, q.ExamID)
	return q, nil
}

// Update replaces a question with the edited draft. The image is kept when
// the form echoes it and cleared when the form submits neither an upload nor
// the existing reference.
func (b *Bank) Update(ctx context.Context, id string, d Draft) (Question, error) {
	current, err := b.store.Get(ctx, id)
	if err != nil {
		metrics.QuestionSave("update", err)
		return Question{}, err
	}

	q, image, err := b.build(ctx, d, current)
	if err == nil {
		q.ID = current.ID
		q.CreatedAt = current.CreatedAt
		q.UpdatedAt = time.Now().UTC()
		q, err = b.store.Update(ctx, q)
	}
	metrics.QuestionSave("update", err)
	if err != nil {
		return Question{}, err
	}

	slog.Info("question updated", "question_id", q.ID, "image", image.String())
	b.warnOverlaps(ctx, q)
	if before, after := current.Triple(), q.Triple(); !sameTriple(before, after) {
		b.signal(ctx, before.ExamID)
		if after.ExamID != before.ExamID {
			b.signal(ctx, after.ExamID)
		}
	}
	return q, nil
}

// Delete removes a question, softly unless hard is set.
func (b *Bank) Delete(ctx context.Context, id string, hard bool) error {
	q, err := b.store.Delete(ctx, id, hard)
	metrics.QuestionSave("delete", err)
	if err != nil {
		return err
	}
	slog.Info("question deleted", "question_id", id, "hard", hard, "triple", q.Triple().String())
	b.signal(ctx, q.ExamID)
	return nil
}

// Get returns a live question.
func (b *Bank) Get(ctx context.Context, id string) (Question, error) {
	return b.store.Get(ctx, id)
}

// List returns live questions matching f.
func (b *Bank) List(ctx context.Context, f Filter) ([]Question, error) {
	return b.store.List(ctx, f)
}

// Precheck runs the save checks that need no lookups, so a client can
// reject a malformed draft before sending it. Selected taxonomy ids stand in
// for the names they will resolve to.
func (d Draft) Precheck() error {
	q := Question{
		ExamID:     strings.TrimSpace(d.ExamID),
		Year:       d.Year,
		Level:      d.LevelID,
		Subject:    d.SubjectID,
		Topic:      d.TopicID,
		Body:       d.Body,
		Options:    d.Options,
		Answer:     d.Answer,
		Difficulty: d.Difficulty,
		Points:     d.Points,
		Group:      d.Group,
	}
	applyDefaults(&q)
	return ValidateForSave(q)
}

// build resolves taxonomy ids, validates, then looks up the exam name.
// Nothing is read from the catalog unless the draft is valid.
func (b *Bank) build(ctx context.Context, d Draft, current Question) (Question, ImageState, error) {
	var names taxonomy.Names
	if b.taxonomy != nil {
		var err error
		if names, err = b.taxonomy.Resolve(d.Selection); err != nil {
			return Question{}, ImageNone, err
		}
	}

	image, state := ResolveImage(current.Image, d.Image)
	q := Question{
		ExamID:      strings.TrimSpace(d.ExamID),
		Year:        d.Year,
		Subject:     names.Subject,
		Topic:       names.Topic,
		Level:       names.Level,
		Body:        d.Body,
		Options:     d.Options,
		Answer:      d.Answer,
		Difficulty:  d.Difficulty,
		Points:      d.Points,
		Explanation: d.Explanation,
		Image:       image,
		Group:       d.Group,
	}
	if IsEmptyRichText(q.Explanation) {
		q.Explanation = ""
	}
	applyDefaults(&q)
	if err := ValidateForSave(q); err != nil {
		return Question{}, ImageNone, err
	}

	exam, err := b.exams.GetExam(ctx, q.ExamID)
	if err != nil {
		return Question{}, ImageNone, err
	}
	q.ExamName = exam.Name
	return q, state, nil
}

// warnOverlaps logs grouped questions of the same triple whose range
// overlaps q's without being the same group.
func (b *Bank) warnOverlaps(ctx context.Context, q Question) {
	if q.Group == nil {
		return
	}
	peers, err := b.store.List(ctx, Filter{ExamID: q.ExamID, Year: q.Year, Subject: q.Subject})
	if err != nil {
		slog.Warn("comprehension overlap check failed", "question_id", q.ID, "error", err)
		return
	}
	var overlapping []string
	for _, p := range peers {
		if p.ID == q.ID || p.Group == nil {
			continue
		}
		same := p.Group.StartNumber == q.Group.StartNumber && p.Group.EndNumber == q.Group.EndNumber
		if !same && p.Group.overlaps(*q.Group) {
			overlapping = append(overlapping, p.ID)
		}
	}
	if len(overlapping) > 0 {
		slog.Warn("overlapping comprehension ranges",
			"question_id", q.ID,
			"triple", q.Triple().String(),
			"start", q.Group.StartNumber,
			"end", q.Group.EndNumber,
			"overlaps", overlapping,
		)
	}
}

// signal tells the count reconciler an exam's membership changed. A failure
// does not undo the save; an explicit sync repairs the counts.
func (b *Bank) signal(ctx context.Context, examID string) {
	if b.counts == nil {
		return
	}
	if err := b.counts.Invalidate(ctx, examID); err != nil {
		slog.Error("question count sync failed", "exam_id", examID, "error", err)
	}
}

func sameTriple(a, b Triple) bool {
	return a.ExamID == b.ExamID && a.Year == b.Year && catalog.RefOf(a.Year, a.Subject) == catalog.RefOf(b.Year, b.Subject)
}
