package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHOW_ID", "1234")
	t.Setenv("DATA_DIR", "/tmp/podcasts")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ShowID != "1234" {
		t.Fatalf("ShowID = %q", cfg.ShowID)
	}
	if cfg.LedgerPath != filepath.Join("/tmp/podcasts", "state.json") {
		t.Fatalf("LedgerPath = %q", cfg.LedgerPath)
	}
	if cfg.AudioSegment != 15*time.Minute {
		t.Fatalf("AudioSegment = %v", cfg.AudioSegment)
	}
	if cfg.RunInterval != 0 {
		t.Fatalf("expected run-once default, got %v", cfg.RunInterval)
	}
	if !cfg.MinPublished.IsZero() {
		t.Fatalf("expected no min date, got %v", cfg.MinPublished)
	}
}

func TestLoadParsesMinPublishedDate(t *testing.T) {
	t.Setenv("MIN_PUBLISHED_DATE", "2024-11-22")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := time.Date(2024, time.November, 22, 0, 0, 0, 0, time.UTC)
	if !cfg.MinPublished.Equal(want) {
		t.Fatalf("MinPublished = %v, want %v", cfg.MinPublished, want)
	}
}

func TestLoadRejectsNegativeLimit(t *testing.T) {
	t.Setenv("MAX_EPISODES_PER_RUN", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative max_episodes_per_run")
	}
}

func TestLoadRejectsThresholdAboveLimit(t *testing.T) {
	t.Setenv("AUDIO_MAX_BYTES", "100")
	t.Setenv("AUDIO_CHUNK_THRESHOLD_BYTES", "200")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when chunk threshold exceeds the hard limit")
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := Config{OpenAIAPIKey: "sk-live", PostgresDSN: "postgres://u:p@h/db"}
	red := cfg.Redacted()
	if red.OpenAIAPIKey != "***" || red.PostgresDSN != "***" {
		t.Fatalf("secrets not redacted: %#v", red)
	}
	if cfg.OpenAIAPIKey != "sk-live" {
		t.Fatalf("Redacted mutated the original")
	}
}
