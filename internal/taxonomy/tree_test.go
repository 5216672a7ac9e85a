package taxonomy_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
	"github.com/p-n-ai/cbt-admin/internal/taxonomy"
)

type fixture struct {
	tree                    *taxonomy.Tree
	ss1, ss2                taxonomy.Level
	biology, chemistry      taxonomy.Subject
	genetics, stoichiometry taxonomy.Topic
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tree := taxonomy.NewTree()
	f := fixture{tree: tree}
	var err error
	if f.ss1, err = tree.AddLevel("SS1"); err != nil {
		t.Fatalf("AddLevel() error = %v", err)
	}
	f.ss2, _ = tree.AddLevel("SS2")
	f.biology, _ = tree.AddSubject(f.ss1.ID, "Biology")
	f.chemistry, _ = tree.AddSubject(f.ss2.ID, "Chemistry")
	f.genetics, _ = tree.AddTopic(f.biology.ID, "Genetics")
	f.stoichiometry, _ = tree.AddTopic(f.chemistry.ID, "Stoichiometry")
	return f
}

func TestTree_Resolve(t *testing.T) {
	f := newFixture(t)

	names, err := f.tree.Resolve(taxonomy.Selection{LevelID: f.ss1.ID, SubjectID: f.biology.ID, TopicID: f.genetics.ID})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := taxonomy.Names{Level: "SS1", Subject: "Biology", Topic: "Genetics"}
	if names != want {
		t.Errorf("Resolve() = %+v, want %+v", names, want)
	}
}

func TestTree_Resolve_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		sel   taxonomy.Selection
		field string
	}{
		{"unknown level", taxonomy.Selection{LevelID: "gone"}, "level"},
		{"subject under other level", taxonomy.Selection{LevelID: f.ss1.ID, SubjectID: f.chemistry.ID}, "subject"},
		{"topic under other subject", taxonomy.Selection{SubjectID: f.biology.ID, TopicID: f.stoichiometry.ID}, "topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tree.Resolve(tt.sel)
			var re *taxonomy.ResolutionError
			if !errors.As(err, &re) || re.Field != tt.field {
				t.Fatalf("Resolve() error = %v, want ResolutionError on %s", err, tt.field)
			}
			if !errors.Is(err, apperr.ErrConflict) {
				t.Error("ResolutionError should classify as a conflict")
			}
		})
	}
}

func TestTree_Resolve_DeletedConcurrently(t *testing.T) {
	f := newFixture(t)
	sel := taxonomy.Selection{LevelID: f.ss1.ID, SubjectID: f.biology.ID, TopicID: f.genetics.ID}

	if err := f.tree.RemoveSubject(f.biology.ID); err != nil {
		t.Fatalf("RemoveSubject() error = %v", err)
	}
	if _, err := f.tree.Resolve(sel); !taxonomy.IsResolutionError(err) {
		t.Errorf("Resolve() after removal error = %v, want ResolutionError", err)
	}
	if _, err := f.tree.Topics(f.biology.ID); !errors.Is(err, taxonomy.ErrNodeNotFound) {
		t.Errorf("Topics() of removed subject error = %v, want ErrNodeNotFound", err)
	}
}

func TestTree_Resolve_EmptySelection(t *testing.T) {
	f := newFixture(t)
	names, err := f.tree.Resolve(taxonomy.Selection{})
	if err != nil || names != (taxonomy.Names{}) {
		t.Errorf("Resolve(empty) = %+v, %v; want empty names", names, err)
	}
}

func TestTree_Duplicates(t *testing.T) {
	f := newFixture(t)

	if _, err := f.tree.AddLevel(" ss1 "); !errors.Is(err, taxonomy.ErrDuplicateNode) {
		t.Errorf("AddLevel(duplicate) error = %v, want ErrDuplicateNode", err)
	}
	if _, err := f.tree.AddSubject(f.ss1.ID, "BIOLOGY"); !errors.Is(err, taxonomy.ErrDuplicateNode) {
		t.Errorf("AddSubject(duplicate) error = %v, want ErrDuplicateNode", err)
	}
	if _, err := f.tree.AddSubject(f.ss2.ID, "Biology"); err != nil {
		t.Errorf("same subject name under another level should be allowed, got %v", err)
	}
	if _, err := f.tree.AddTopic("missing", "Cells"); !errors.Is(err, taxonomy.ErrNodeNotFound) {
		t.Errorf("AddTopic(missing subject) error = %v, want ErrNodeNotFound", err)
	}
	if _, err := f.tree.AddLevel(""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("AddLevel(empty) error = %v, want validation error", err)
	}
}

func TestTree_RemoveLevelCascades(t *testing.T) {
	f := newFixture(t)

	if err := f.tree.RemoveLevel(f.ss1.ID); err != nil {
		t.Fatalf("RemoveLevel() error = %v", err)
	}
	if _, err := f.tree.Resolve(taxonomy.Selection{TopicID: f.genetics.ID}); err == nil {
		t.Error("topics of a removed level should be gone")
	}
	if got := len(f.tree.Levels()); got != 1 {
		t.Errorf("Levels() = %d, want 1", got)
	}
}

func TestTree_Snapshot(t *testing.T) {
	f := newFixture(t)
	snap := f.tree.Snapshot()
	if len(snap) != 2 || snap[0].Name != "SS1" {
		t.Fatalf("Snapshot() = %+v", snap)
	}
	if len(snap[0].Subjects) != 1 || len(snap[0].Subjects[0].Topics) != 1 {
		t.Errorf("SS1 children = %+v, want Biology/Genetics", snap[0].Subjects)
	}
}
