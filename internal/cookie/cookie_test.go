package cookie

import (
	"bytes"
	"regexp"
	"testing"
)

func TestResolve(t *testing.T) {
	anon := regexp.MustCompile(`^NMTID=[0-9a-f]{32};$`)
	for i := 0; i < 10; i++ {
		got, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !anon.MatchString(got) {
			t.Fatalf("unexpected anonymous cookie %q", got)
		}
	}

	for _, supplied := range []string{"MUSIC_U=abc; _csrf=1", " ", "x"} {
		got, err := Resolve(supplied)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", supplied, err)
		}
		if got != supplied {
			t.Errorf("Resolve(%q) = %q, want passthrough", supplied, got)
		}
	}
}

func TestResolverDeterministicSource(t *testing.T) {
	r := NewResolver(bytes.NewReader(bytes.Repeat([]byte{0xab}, 16)))
	got, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "NMTID=abababababababababababababababab;" {
		t.Errorf("unexpected cookie %q", got)
	}

	if _, err := r.Resolve(""); err == nil {
		t.Error("expected error once the source is exhausted")
	}
}

func TestExtractCSRF(t *testing.T) {
	tests := []struct {
		cookie string
		want   string
	}{
		{"a=1; _csrf=XYZ123; b=2", "XYZ123"},
		{"a=1;b=2", ""},
		{"_csrf=first", "first"},
		{"a=1;_csrf=tail", "tail"},
		{"MUSIC_U=u; __csrf=double", "double"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractCSRF(tt.cookie); got != tt.want {
			t.Errorf("ExtractCSRF(%q) = %q, want %q", tt.cookie, got, tt.want)
		}
	}
}
