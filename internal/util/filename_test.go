package util

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"My Project: v2": "My_Project_v2",
		"shop":           "shop",
		"  !!  ":         "Project",
		"a--b":           "a--b",
		"Ünïcode name":   "n_code_name",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
