package questionbank

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

func TestOptions_JSON(t *testing.T) {
	opts := Options{
		TextOption{Content: "Lyon"},
		TextOption{Content: "Paris"},
		ImageOption{URL: "https://cdn.example.com/c.png"},
		nil,
	}
	data, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `[{"type":"text","content":"Lyon"},{"type":"text","content":"Paris"},{"type":"image","content":"https://cdn.example.com/c.png"},null]`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}

	var back Options
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := back[2].(ImageOption); !ok {
		t.Errorf("slot C = %T, want ImageOption", back[2])
	}
	if back[3] != nil {
		t.Errorf("slot D = %v, want nil", back[3])
	}
}

func TestOptions_UnknownType(t *testing.T) {
	var opts Options
	err := json.Unmarshal([]byte(`[{"type":"audio","content":"x.mp3"}]`), &opts)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Unmarshal() error = %v, want validation error", err)
	}
}

func TestComprehensionGroup_Overlaps(t *testing.T) {
	g := ComprehensionGroup{StartNumber: 1, EndNumber: 5}
	tests := []struct {
		other ComprehensionGroup
		want  bool
	}{
		{ComprehensionGroup{StartNumber: 5, EndNumber: 8}, true},
		{ComprehensionGroup{StartNumber: 6, EndNumber: 8}, false},
		{ComprehensionGroup{StartNumber: 2, EndNumber: 3}, true},
	}
	for _, tt := range tests {
		if got := g.overlaps(tt.other); got != tt.want {
			t.Errorf("overlaps(%d-%d) = %v, want %v", tt.other.StartNumber, tt.other.EndNumber, got, tt.want)
		}
	}
}

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		in        ImageInput
		wantImage string
		wantState ImageState
	}{
		{"none", "", ImageInput{}, "", ImageNone},
		{"first upload", "", ImageInput{Upload: "new.png"}, "new.png", ImageReplaced},
		{"keep existing", "old.png", ImageInput{Existing: "old.png"}, "old.png", ImageExisting},
		{"replace", "old.png", ImageInput{Upload: "new.png", Existing: "old.png"}, "new.png", ImageReplaced},
		{"remove", "old.png", ImageInput{}, "", ImageRemoved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, state := ResolveImage(tt.current, tt.in)
			if img != tt.wantImage || state != tt.wantState {
				t.Errorf("ResolveImage() = %q, %s; want %q, %s", img, state, tt.wantImage, tt.wantState)
			}
		})
	}
}
