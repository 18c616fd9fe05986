package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenMissingFileIsEmpty(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "nested", "state.json"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger")
	}
	if _, ok := l.LatestPublished(); ok {
		t.Fatalf("expected no baseline")
	}
}

func TestOpenCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("corrupt ledger should load empty, got %d entries", l.Len())
	}
}

func TestMarkProcessedIsIdempotentAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	l, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	pub := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)
	if err := l.MarkProcessed("g1", pub); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := l.MarkProcessed("g1", pub); err != nil {
		t.Fatalf("MarkProcessed again: %v", err)
	}
	if !l.IsProcessed("g1") || l.Len() != 1 {
		t.Fatalf("expected single processed guid, len=%d", l.Len())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var st struct {
		ProcessedGUIDs     []string `json:"processed_guids"`
		LatestPublishedISO *string  `json:"latest_published_iso"`
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(st.ProcessedGUIDs) != 1 || st.ProcessedGUIDs[0] != "g1" {
		t.Fatalf("unexpected guids %v", st.ProcessedGUIDs)
	}
	if st.LatestPublishedISO == nil || *st.LatestPublishedISO != "2024-01-05T10:30:00" {
		t.Fatalf("unexpected baseline %v", st.LatestPublishedISO)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.IsProcessed("g1") {
		t.Fatalf("guid lost across reopen")
	}
	if got, ok := reopened.LatestPublished(); !ok || !got.Equal(pub) {
		t.Fatalf("baseline lost across reopen: %v %v", got, ok)
	}
}

func TestBaselineNeverDecreases(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "state.json"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	jan5 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	jan3 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	jan9 := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)

	steps := []struct {
		guid string
		pub  time.Time
		want time.Time
	}{
		{"a", jan5, jan5},
		{"b", jan3, jan5},
		{"c", time.Time{}, jan5},
		{"d", jan9, jan9},
		{"e", jan3, jan9},
	}
	for _, s := range steps {
		if err := l.MarkProcessed(s.guid, s.pub); err != nil {
			t.Fatalf("MarkProcessed(%s): %v", s.guid, err)
		}
		got, ok := l.LatestPublished()
		if !ok || !got.Equal(s.want) {
			t.Fatalf("after %s baseline = %v, want %v", s.guid, got, s.want)
		}
	}
}

func TestLoadsLegacyFractionalTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	legacy := `{"processed_guids": ["x", "y"], "latest_published_iso": "2024-02-01T09:15:00.250000"}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l.Len() != 2 || !l.IsProcessed("y") {
		t.Fatalf("legacy guids not loaded")
	}
	got, ok := l.LatestPublished()
	if !ok || !got.Equal(time.Date(2024, 2, 1, 9, 15, 0, 0, time.UTC)) {
		t.Fatalf("legacy baseline = %v %v", got, ok)
	}
}

func TestSeedIfEmptyRunsOnce(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "state.json"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	n, err := l.SeedIfEmpty([]string{"a", "b", " ", "a"})
	if err != nil || n != 2 {
		t.Fatalf("first seed n=%d err=%v", n, err)
	}
	n, err = l.SeedIfEmpty([]string{"c"})
	if err != nil || n != 0 {
		t.Fatalf("second seed should be a no-op, n=%d err=%v", n, err)
	}
	if l.IsProcessed("c") {
		t.Fatalf("seed ran on a non-empty ledger")
	}
}
