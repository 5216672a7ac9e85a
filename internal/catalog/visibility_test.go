package catalog

import (
	"errors"
	"testing"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

func examWithSubjects(t *testing.T) Exam {
	t.Helper()
	e := newTestExam(t)
	_ = e.AddYear(YearSpec{Year: 2022, Subjects: []SubjectSpec{{Name: "Biology"}, {Name: "Physics"}, {Name: "Chemistry"}}})
	return e
}

func TestApplyVisibility_AllOrNothing(t *testing.T) {
	e := examWithSubjects(t)

	_, err := e.ApplyVisibility([]VisibilityUpdate{
		{Year: 2022, Subject: "Biology", IsVisible: false},
		{Year: 2022, Subject: "Art", IsVisible: false},
	})
	var target *InvalidTargetError
	if !errors.As(err, &target) {
		t.Fatalf("ApplyVisibility() error = %v, want InvalidTargetError", err)
	}
	if len(target.Targets) != 1 || target.Targets[0] != (Target{Year: 2022, Subject: "Art"}) {
		t.Errorf("Targets = %+v, want [2022/Art]", target.Targets)
	}
	if s, _ := e.FindSubject(2022, "Biology"); !s.IsVisible {
		t.Error("valid update in a failed batch must not be applied")
	}
}

func TestApplyVisibility_CollectsAllUnknownTargets(t *testing.T) {
	e := examWithSubjects(t)

	_, err := e.ApplyVisibility([]VisibilityUpdate{
		{Year: 2019, Subject: "Biology"},
		{Year: 2022, Subject: "Physics"},
		{Year: 2022, Subject: "Music"},
	})
	var target *InvalidTargetError
	if !errors.As(err, &target) {
		t.Fatalf("ApplyVisibility() error = %v, want InvalidTargetError", err)
	}
	if len(target.Targets) != 2 {
		t.Fatalf("Targets = %+v, want 2 entries", target.Targets)
	}
	if target.Targets[0].Year != 2019 {
		t.Errorf("first offender = %v, want 2019/Biology", target.Targets[0])
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Error("InvalidTargetError should classify as not found")
	}
}

func TestApplyVisibility_Results(t *testing.T) {
	e := examWithSubjects(t)

	results, err := e.ApplyVisibility([]VisibilityUpdate{
		{Year: 2022, Subject: "biology", IsVisible: false},
		{Year: 2022, Subject: "Physics", IsVisible: false},
		{Year: 2022, Subject: "Chemistry", IsVisible: true},
	})
	if err != nil {
		t.Fatalf("ApplyVisibility() error = %v", err)
	}
	if !results[0].Changed || !results[1].Changed || results[2].Changed {
		t.Errorf("Changed flags = %v %v %v, want true true false", results[0].Changed, results[1].Changed, results[2].Changed)
	}
	if results[0].Subject != "Biology" {
		t.Errorf("result subject = %q, want catalog spelling Biology", results[0].Subject)
	}
	if got := Summarize(results); got != "2 subjects hidden, 1 unchanged" {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestValidateVisibilityBatch(t *testing.T) {
	tests := []struct {
		name    string
		updates []VisibilityUpdate
		wantErr bool
	}{
		{"empty", nil, true},
		{"blank subject", []VisibilityUpdate{{Year: 2022, Subject: " "}}, true},
		{"contradiction", []VisibilityUpdate{
			{Year: 2022, Subject: "Biology", IsVisible: true},
			{Year: 2022, Subject: "BIOLOGY", IsVisible: false},
		}, true},
		{"repeat same value", []VisibilityUpdate{
			{Year: 2022, Subject: "Biology", IsVisible: true},
			{Year: 2022, Subject: "Biology", IsVisible: true},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVisibilityBatch(tt.updates)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVisibilityBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		results []VisibilityResult
		want    string
	}{
		{nil, "no changes"},
		{[]VisibilityResult{{Changed: true}, {Changed: true}, {Changed: true}}, "3 subjects hidden"},
		{[]VisibilityResult{{Changed: true, IsVisible: true}}, "1 subject shown"},
	}
	for _, tt := range tests {
		if got := Summarize(tt.results); got != tt.want {
			t.Errorf("Summarize() = %q, want %q", got, tt.want)
		}
	}
}
