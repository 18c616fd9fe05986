package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/logger"
)

// isoLayout stores timestamps as naive UTC wall time, matching existing state files.
const isoLayout = "2006-01-02T15:04:05"

// fileState is the on-disk format. Field names are load-bearing.
type fileState struct {
	ProcessedGUIDs     []string `json:"processed_guids"`
	LatestPublishedISO *string  `json:"latest_published_iso"`
}

// Ledger is the persistent set of processed episode guids plus the newest publish time seen.
// Every mutation is written to disk before the call returns.
type Ledger struct {
	mu        sync.Mutex
	path      string
	processed map[string]struct{}
	latest    time.Time
	log       logger.Logger
}

// Open loads the ledger at path. A missing or unreadable file yields an empty ledger;
// only failure to create the parent directory is reported.
func Open(path string, log logger.Logger) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger path is empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	l := &Ledger{
		path:      path,
		processed: make(map[string]struct{}),
		log:       logger.Ensure(log),
	}
	l.load()
	return l, nil
}

func (l *Ledger) load() {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		l.log.WarnObj("ledger unreadable; starting empty", "ledger_error", map[string]any{
			"path":  l.path,
			"error": err.Error(),
		})
		return
	}

	var st fileState
	if err := json.Unmarshal(raw, &st); err != nil {
		l.log.WarnObj("ledger corrupt; starting empty", "ledger_error", map[string]any{
			"path":  l.path,
			"error": err.Error(),
		})
		return
	}

	for _, g := range st.ProcessedGUIDs {
		l.processed[g] = struct{}{}
	}
	if st.LatestPublishedISO != nil {
		if t, ok := parseISO(*st.LatestPublishedISO); ok {
			l.latest = t
		}
	}
}

// IsProcessed reports whether guid was marked processed.
func (l *Ledger) IsProcessed(guid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[guid]
	return ok
}

// MarkProcessed records guid and advances the baseline when published is newer.
// A zero published leaves the baseline untouched.
func (l *Ledger) MarkProcessed(guid string, published time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.processed[guid] = struct{}{}
	if !published.IsZero() {
		published = truncate(published)
		if l.latest.IsZero() || published.After(l.latest) {
			l.latest = published
		}
	}
	return l.saveLocked()
}

// LatestPublished returns the baseline, if any.
func (l *Ledger) LatestPublished() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest, !l.latest.IsZero()
}

// Len returns the number of processed guids.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.processed)
}

// SeedIfEmpty imports guids from an authoritative source. It is a no-op once the
// ledger holds any entry and returns how many guids were imported.
func (l *Ledger) SeedIfEmpty(guids []string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.processed) > 0 {
		return 0, nil
	}
	for _, g := range guids {
		if g = strings.TrimSpace(g); g != "" {
			l.processed[g] = struct{}{}
		}
	}
	if len(l.processed) == 0 {
		return 0, nil
	}
	return len(l.processed), l.saveLocked()
}

// saveLocked writes through a temp file and rename so a crash never leaves a torn file.
func (l *Ledger) saveLocked() error {
	guids := make([]string, 0, len(l.processed))
	for g := range l.processed {
		guids = append(guids, g)
	}
	sort.Strings(guids)

	st := fileState{ProcessedGUIDs: guids}
	if !l.latest.IsZero() {
		iso := l.latest.Format(isoLayout)
		st.LatestPublishedISO = &iso
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger temp file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// parseISO accepts the naive layout with optional fractional seconds; offsets are
// converted to UTC so older files written with a zone still compare consistently.
func parseISO(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(isoLayout+".999999999", raw, time.UTC); err == nil {
		return truncate(t), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return truncate(t), true
	}
	return time.Time{}, false
}

// truncate drops sub-second precision so in-memory and persisted baselines agree.
func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
