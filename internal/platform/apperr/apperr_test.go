package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
)

func TestKind(t *testing.T) {
	dup := fmt.Errorf("%w: duplicate year", apperr.ErrConflict)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", apperr.Invalid("answer", "must be A-D"), apperr.ErrValidation},
		{"wrapped conflict", fmt.Errorf("add year: %w", dup), apperr.ErrConflict},
		{"not found", fmt.Errorf("exam x: %w", apperr.ErrNotFound), apperr.ErrNotFound},
		{"plain", errors.New("boom"), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := apperr.Invalid("options", "expected %d options, got %d", 4, 3)
	if err.Error() != "options: expected 4 options, got 3" {
		t.Errorf("Error() = %q", err.Error())
	}

	var ve *apperr.ValidationError
	if !errors.As(fmt.Errorf("save: %w", err), &ve) || ve.Field != "options" {
		t.Errorf("errors.As did not recover the field, got %+v", ve)
	}
}
