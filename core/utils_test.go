package core

import "testing"

func TestCleanString(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		lower bool
		want  string
	}{
		{"trims surrounding whitespace", "  Advanced Go \t", false, "Advanced Go"},
		{"keeps case by default", " MiXeD ", false, "MiXeD"},
		{"lowers on request", " MiXeD ", true, "mixed"},
		{"empty in, empty out", "   ", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanString(tt.s, tt.lower); got != tt.want {
				t.Errorf("CleanString() = %q; want %q", got, tt.want)
			}
		})
	}
}
