package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Episode 12: The Return!", "Episode_12_The_Return"},
		{"  ..hidden..  ", "hidden"},
		{"a/b\\c", "a_b_c"},
		{"", "episode"},
		{"???", "episode"},
		{"already-safe_name.v2", "already-safe_name.v2"},
		{"émission spéciale", "mission_sp_ciale"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	path, err := WriteTranscript(dir, "Ep 1: Hello", "text body")
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if filepath.Base(path) != "Ep_1_Hello.txt" {
		t.Fatalf("unexpected file name %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "text body" {
		t.Fatalf("unexpected contents %q err=%v", raw, err)
	}
}
