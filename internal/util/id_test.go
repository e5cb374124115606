package util

import (
	"errors"
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	a, b := NewID(PlanPrefix), NewID(PlanPrefix)
	if !strings.HasPrefix(a, PlanPrefix) || len(a) != len(PlanPrefix)+8 {
		t.Errorf("NewID() = %q, want plan- plus 8 chars", a)
	}
	if a == b {
		t.Errorf("NewID() returned duplicate %q", a)
	}
}

func TestResolvePrefix(t *testing.T) {
	known := []string{"plan-abc12345", "plan-abd99999", "plan-abc"}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "exact match beats prefix", input: "plan-abc", want: "plan-abc"},
		{name: "unique prefix", input: "plan-abd", want: "plan-abd99999"},
		{name: "ambiguous", input: "plan-ab", wantErr: ErrAmbiguousID},
		{name: "no match", input: "exec-", wantErr: ErrNotFound},
		{name: "empty", input: "", wantErr: ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolvePrefix(tc.input, known, "plan")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ResolvePrefix(%q) error = %v, want %v", tc.input, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePrefix(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ResolvePrefix(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
