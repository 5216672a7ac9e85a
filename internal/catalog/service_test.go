package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
	"github.com/p-n-ai/cbt-admin/internal/platform/cache"
)

func newService(t *testing.T) *catalog.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return catalog.NewService(catalog.ServiceConfig{
		Store: catalog.NewMemoryStore(),
		Cache: cache.NewReadCache(client, "exams", time.Minute),
	})
}

func createExam(t *testing.T, svc *catalog.Service, code string) catalog.Exam {
	t.Helper()
	e, err := svc.CreateExam(context.Background(), catalog.ExamSpec{
		Code:     code,
		Name:     code + " exam",
		Category: catalog.CategorySecondary,
	})
	if err != nil {
		t.Fatalf("CreateExam() error = %v", err)
	}
	return e
}

func TestService_AddYearTwice(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	e := createExam(t, svc, "waec")

	spec := catalog.YearSpec{Year: 2022, Subjects: []catalog.SubjectSpec{{Name: "Mathematics", TimeAllocation: 120}}}
	if _, err := svc.AddYear(ctx, e.ID, spec); err != nil {
		t.Fatalf("AddYear() error = %v", err)
	}
	if _, err := svc.AddYear(ctx, e.ID, spec); !errors.Is(err, catalog.ErrDuplicateYear) {
		t.Fatalf("AddYear(twice) error = %v, want ErrDuplicateYear", err)
	}
}

func TestService_ListExams_PublicAndAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	waec := createExam(t, svc, "waec")
	neco := createExam(t, svc, "neco")
	inactive := false
	if _, err := svc.UpdateExam(ctx, neco.ID, catalog.ExamPatch{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateExam() error = %v", err)
	}
	if _, err := svc.AddYear(ctx, waec.ID, catalog.YearSpec{Year: 2022, Subjects: []catalog.SubjectSpec{{Name: "Physics"}}}); err != nil {
		t.Fatalf("AddYear() error = %v", err)
	}

	admin, err := svc.ListExams(ctx, catalog.ListOptions{Admin: true})
	if err != nil {
		t.Fatalf("ListExams(admin) error = %v", err)
	}
	if len(admin) != 2 {
		t.Fatalf("admin list = %d exams, want 2", len(admin))
	}

	public, err := svc.ListExams(ctx, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("ListExams(public) error = %v", err)
	}
	if len(public) != 1 || public[0].Code != "waec" {
		t.Fatalf("public list = %+v, want only waec", public)
	}
	if len(public[0].Years) != 1 || len(public[0].Years[0].Subjects) != 0 {
		t.Errorf("public view should hide the incomplete Physics subject, got %+v", public[0].Years)
	}
}

func TestService_ListExams_CacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	e := createExam(t, svc, "waec")

	first, _ := svc.ListExams(ctx, catalog.ListOptions{Admin: true})
	if len(first[0].Years) != 0 {
		t.Fatal("expected no years yet")
	}

	if _, err := svc.AddYear(ctx, e.ID, catalog.YearSpec{Year: 2022}); err != nil {
		t.Fatalf("AddYear() error = %v", err)
	}
	second, _ := svc.ListExams(ctx, catalog.ListOptions{Admin: true})
	if len(second[0].Years) != 1 {
		t.Error("list should reflect the new year after invalidation")
	}
}

func TestService_BulkUpdateVisibility(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	e := createExam(t, svc, "waec")
	_, _ = svc.AddYear(ctx, e.ID, catalog.YearSpec{Year: 2022, Subjects: []catalog.SubjectSpec{{Name: "Biology"}, {Name: "Physics"}}})

	_, _, err := svc.BulkUpdateVisibility(ctx, e.ID, []catalog.VisibilityUpdate{
		{Year: 2022, Subject: "Biology", IsVisible: false},
		{Year: 2023, Subject: "Physics", IsVisible: false},
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("BulkUpdateVisibility(bad target) error = %v, want not found", err)
	}
	got, _ := svc.GetExam(ctx, e.ID)
	if s, _ := got.FindSubject(2022, "Biology"); !s.IsVisible {
		t.Error("no update may be applied when any target is invalid")
	}

	res, updated, err := svc.BulkUpdateVisibility(ctx, e.ID, []catalog.VisibilityUpdate{
		{Year: 2022, Subject: "Biology", IsVisible: false},
		{Year: 2022, Subject: "Physics", IsVisible: false},
	})
	if err != nil {
		t.Fatalf("BulkUpdateVisibility() error = %v", err)
	}
	if res.Summary != "2 subjects hidden" {
		t.Errorf("Summary = %q, want 2 subjects hidden", res.Summary)
	}
	if updated.Version != got.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, got.Version+1)
	}

	if _, _, err := svc.BulkUpdateVisibility(ctx, e.ID, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("BulkUpdateVisibility(empty) error = %v, want validation error", err)
	}
}

func TestService_WriteCounts(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	e := createExam(t, svc, "waec")
	_, _ = svc.AddYear(ctx, e.ID, catalog.YearSpec{Year: 2022, Subjects: []catalog.SubjectSpec{{Name: "Physics"}}})

	tally := []catalog.SubjectCount{{Year: 2022, Subject: "Physics", Count: 15}}
	diff := func(_ context.Context, e catalog.Exam) ([]catalog.CountUpdate, error) { return e.CountDiff(tally), nil }

	updates, err := svc.WriteCounts(ctx, e.ID, diff)
	if err != nil {
		t.Fatalf("WriteCounts() error = %v", err)
	}
	if len(updates) != 1 || updates[0].OldCount != 0 || updates[0].NewCount != 15 {
		t.Fatalf("WriteCounts() = %+v, want 0 -> 15", updates)
	}

	again, err := svc.WriteCounts(ctx, e.ID, diff)
	if err != nil {
		t.Fatalf("WriteCounts(again) error = %v", err)
	}
	if again == nil || len(again) != 0 {
		t.Errorf("second WriteCounts() = %#v, want empty non-nil slice", again)
	}

	report, _ := svc.StatusReport(ctx, e.ID)
	if len(report) != 1 || report[0].Status != catalog.StatusLive {
		t.Errorf("StatusReport() = %+v, want Physics live", report)
	}

	failing := func(context.Context, catalog.Exam) ([]catalog.CountUpdate, error) {
		return nil, errors.New("count unavailable")
	}
	if _, err := svc.WriteCounts(ctx, e.ID, failing); err == nil {
		t.Error("WriteCounts() should return the tally error")
	}
	got, _ := svc.GetExam(ctx, e.ID)
	if s, _ := got.FindSubject(2022, "Physics"); s.QuestionCount != 15 {
		t.Errorf("QuestionCount = %d after failed tally, want 15", s.QuestionCount)
	}
}

// commitDuringList runs commit right after the first List read returns, as
// if another admin's mutation landed between the read and the cache fill.
type commitDuringList struct {
	catalog.Store
	once   sync.Once
	commit func()
}

func (s *commitDuringList) List(ctx context.Context, f catalog.Filter) ([]catalog.Exam, error) {
	exams, err := s.Store.List(ctx, f)
	s.once.Do(s.commit)
	return exams, err
}

func TestService_ListExams_MutationDuringFill(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &commitDuringList{Store: catalog.NewMemoryStore()}
	svc := catalog.NewService(catalog.ServiceConfig{
		Store: store,
		Cache: cache.NewReadCache(client, "exams", time.Minute),
	})
	e := createExam(t, svc, "waec")
	store.commit = func() {
		if _, err := svc.AddYear(ctx, e.ID, catalog.YearSpec{Year: 2022}); err != nil {
			t.Errorf("AddYear() error = %v", err)
		}
	}

	if _, err := svc.ListExams(ctx, catalog.ListOptions{Admin: true}); err != nil {
		t.Fatalf("ListExams() error = %v", err)
	}
	after, err := svc.ListExams(ctx, catalog.ListOptions{Admin: true})
	if err != nil {
		t.Fatalf("ListExams() error = %v", err)
	}
	if len(after) != 1 || len(after[0].Years) != 1 {
		t.Errorf("listing after committed AddYear = %+v, want the 2022 year", after)
	}
}

func TestService_RemoveExam(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	e := createExam(t, svc, "waec")

	if err := svc.RemoveExam(ctx, e.ID); err != nil {
		t.Fatalf("RemoveExam() error = %v", err)
	}
	if _, err := svc.GetExam(ctx, e.ID); !errors.Is(err, catalog.ErrExamNotFound) {
		t.Errorf("GetExam(removed) error = %v, want ErrExamNotFound", err)
	}
}
