package adminclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/p-n-ai/cbt-admin/internal/adminclient"
	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

func TestCatalogCache_MutateRefetches(t *testing.T) {
	ctx := context.Background()
	c, _ := newServer(t)
	cache := adminclient.NewCatalogCache(c)

	e, err := c.CreateExam(ctx, catalog.ExamSpec{Code: "waec", Name: "WAEC", Category: catalog.CategorySecondary})
	if err != nil {
		t.Fatalf("CreateExam() error = %v", err)
	}
	if _, err := cache.Exam(ctx, e.ID); err != nil {
		t.Fatalf("Exam() error = %v", err)
	}

	got, err := cache.Mutate(ctx, e.ID, func(ctx context.Context) (catalog.Exam, error) {
		return c.AddYear(ctx, e.ID, catalog.YearSpec{Year: 2021, Subjects: []catalog.SubjectSpec{{Name: "Chemistry"}}})
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if _, ok := got.FindSubject(2021, "Chemistry"); !ok {
		t.Error("mutated exam should contain 2021/Chemistry")
	}
	if got.Version <= e.Version {
		t.Errorf("Version = %d, want > %d", got.Version, e.Version)
	}

	_, err = cache.Mutate(ctx, e.ID, func(ctx context.Context) (catalog.Exam, error) {
		return c.AddYear(ctx, e.ID, catalog.YearSpec{Year: 2021})
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Mutate(duplicate year) error = %v, want conflict", err)
	}
}

func TestCatalogCache_DropsStaleVersions(t *testing.T) {
	var version atomic.Int64
	version.Store(5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(catalog.Exam{ID: "e1", Name: "WAEC", Version: version.Load()})
	}))
	defer srv.Close()

	cache := adminclient.NewCatalogCache(adminclient.New(srv.URL, "token"))
	ctx := context.Background()

	if _, err := cache.Refresh(ctx, "e1"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	version.Store(3)
	got, err := cache.Refresh(ctx, "e1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got.Version != 5 {
		t.Errorf("Version after stale refresh = %d, want 5", got.Version)
	}

	// A response older than anything seen stays uncached after Invalidate.
	cache.Invalidate("e1")
	got, err = cache.Exam(ctx, "e1")
	if err != nil {
		t.Fatalf("Exam() error = %v", err)
	}
	if got.Version != 3 {
		t.Errorf("Version after invalidate = %d, want the fetched 3", got.Version)
	}

	version.Store(6)
	got, err = cache.Exam(ctx, "e1")
	if err != nil {
		t.Fatalf("Exam() error = %v", err)
	}
	if got.Version != 6 {
		t.Errorf("Version = %d, want 6 refetched since the stale 3 was not cached", got.Version)
	}

	version.Store(2)
	got, _ = cache.Exam(ctx, "e1")
	if got.Version != 6 {
		t.Errorf("Version = %d, want cached 6", got.Version)
	}
}
