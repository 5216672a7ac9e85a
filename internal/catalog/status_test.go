package catalog

import "testing"

func TestStatusOf_Table(t *testing.T) {
	tests := []struct {
		name    string
		visible bool
		count   int
		minimum int
		want    Status
	}{
		{"visible and ready", true, 15, 15, StatusLive},
		{"hidden and ready", false, 20, 15, StatusHiddenReady},
		{"visible below minimum", true, 10, 15, StatusIncomplete},
		{"hidden below minimum", false, 0, 15, StatusHiddenIncomplete},
		{"zero minimum is always ready", true, 0, 0, StatusLive},
		{"hidden with zero minimum", false, 0, 0, StatusHiddenReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Subject{Name: "Physics", IsVisible: tt.visible, QuestionCount: tt.count}
			if got := StatusOf(s, tt.minimum); got != tt.want {
				t.Errorf("StatusOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusOf_Total(t *testing.T) {
	valid := map[Status]bool{}
	for _, s := range Statuses {
		valid[s] = true
	}

	for _, visible := range []bool{true, false} {
		for count := 0; count <= 30; count++ {
			for minimum := 0; minimum <= 30; minimum += 5 {
				s := Subject{IsVisible: visible, QuestionCount: count}
				first := StatusOf(s, minimum)
				if !valid[first] {
					t.Fatalf("StatusOf(%v, %d, %d) = %q, not a defined status", visible, count, minimum, first)
				}
				if again := StatusOf(s, minimum); again != first {
					t.Fatalf("StatusOf not deterministic: %q then %q", first, again)
				}
				if (first == StatusLive || first == StatusIncomplete) != visible {
					t.Fatalf("StatusOf(%v, %d, %d) = %q disagrees with visibility", visible, count, minimum, first)
				}
			}
		}
	}
}

func TestStatusOf_ReachesMinimumAfterSync(t *testing.T) {
	e := Exam{MinQuestionsPerSubject: 15, Years: []Year{{
		Year: 2022, IsAvailable: true,
		Subjects: []Subject{{Name: "Physics", QuestionCount: 10, IsVisible: true}},
	}}}

	if got := e.StatusReport()[0].Status; got != StatusIncomplete {
		t.Fatalf("status before sync = %q, want incomplete", got)
	}

	updates := e.CountDiff([]SubjectCount{{Year: 2022, Subject: "Physics", Count: 15}})
	if err := e.ApplyCounts(updates); err != nil {
		t.Fatalf("ApplyCounts() error = %v", err)
	}

	if got := e.StatusReport()[0].Status; got != StatusLive {
		t.Errorf("status after sync = %q, want live", got)
	}
}

func TestPublicView(t *testing.T) {
	e := Exam{MinQuestionsPerSubject: 2, Years: []Year{
		{Year: 2021, IsAvailable: false, Subjects: []Subject{{Name: "Biology", IsVisible: true, QuestionCount: 5}}},
		{Year: 2022, IsAvailable: true, Subjects: []Subject{
			{Name: "Biology", IsVisible: true, QuestionCount: 5},
			{Name: "Chemistry", IsVisible: false, QuestionCount: 5},
			{Name: "Physics", IsVisible: true, QuestionCount: 1},
		}},
	}}

	view := e.PublicView()
	if len(view.Years) != 1 || view.Years[0].Year != 2022 {
		t.Fatalf("PublicView years = %+v, want only 2022", view.Years)
	}
	if len(view.Years[0].Subjects) != 1 || view.Years[0].Subjects[0].Name != "Biology" {
		t.Errorf("PublicView subjects = %+v, want only Biology", view.Years[0].Subjects)
	}
	if len(e.Years) != 2 || len(e.Years[1].Subjects) != 3 {
		t.Error("PublicView must not modify the source exam")
	}
}
