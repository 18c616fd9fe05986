package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename maps name onto [A-Za-z0-9._-], collapsing every other run to "_".
func SanitizeFilename(name string) string {
	s := unsafeFilenameRun.ReplaceAllString(strings.TrimSpace(name), "_")
	s = strings.Trim(s, "._")
	if len(s) > 120 {
		s = strings.TrimRight(s[:120], "._")
	}
	if s == "" {
		return "episode"
	}
	return s
}

// WriteTranscript saves text as <dir>/<sanitized title>.txt and returns the path.
func WriteTranscript(dir, title, text string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("transcripts directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcripts directory: %w", err)
	}
	path := filepath.Join(dir, SanitizeFilename(title)+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}
