package selector

import (
	"time"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

// Mode names the path that produced a selection.
type Mode string

const (
	// ModeScan: no anchor, newest-first scan of unprocessed episodes.
	ModeScan Mode = "scan"
	// ModeAnchor: unprocessed episodes newer than the anchor.
	ModeAnchor Mode = "anchor"
	// ModeAnchorFallback: every episode newer than the anchor was already done,
	// so the full list was scanned instead.
	ModeAnchorFallback Mode = "anchor_fallback"
	// ModeAnchorEmpty: nothing in the feed is newer than the anchor.
	ModeAnchorEmpty Mode = "anchor_empty"
)

// ProcessedChecker answers the dedup question. *ledger.Ledger satisfies it.
type ProcessedChecker interface {
	IsProcessed(guid string) bool
}

// Criteria bounds a selection. Zero times mean "not set"; MaxCount 0 means unlimited.
type Criteria struct {
	StartingDate time.Time
	MinDate      time.Time
	MaxCount     int
}

// Result is the chosen episodes, newest first, and the mode that chose them.
type Result struct {
	Episodes []domain.Episode
	Mode     Mode
}

// Select picks the episodes to process this run from a newest-first list.
func Select(episodes []domain.Episode, checker ProcessedChecker, c Criteria) Result {
	if c.StartingDate.IsZero() {
		return Result{Episodes: scanUnprocessed(episodes, checker, c), Mode: ModeScan}
	}

	var newer []domain.Episode
	for _, ep := range episodes {
		if ep.HasPublished() && ep.Published.After(c.StartingDate) && meetsFloor(ep, c.MinDate) {
			newer = append(newer, ep)
		}
	}
	if len(newer) == 0 {
		return Result{Episodes: []domain.Episode{}, Mode: ModeAnchorEmpty}
	}

	unprocessed := make([]domain.Episode, 0, len(newer))
	for _, ep := range newer {
		if !checker.IsProcessed(ep.GUID) {
			unprocessed = append(unprocessed, ep)
		}
	}
	if len(unprocessed) > 0 {
		return Result{Episodes: limit(unprocessed, c.MaxCount), Mode: ModeAnchor}
	}

	return Result{Episodes: scanUnprocessed(episodes, checker, c), Mode: ModeAnchorFallback}
}

func scanUnprocessed(episodes []domain.Episode, checker ProcessedChecker, c Criteria) []domain.Episode {
	out := make([]domain.Episode, 0)
	for _, ep := range episodes {
		if c.MaxCount > 0 && len(out) >= c.MaxCount {
			break
		}
		if !meetsFloor(ep, c.MinDate) || checker.IsProcessed(ep.GUID) {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// meetsFloor: a dateless episode never satisfies an active floor.
func meetsFloor(ep domain.Episode, minDate time.Time) bool {
	if minDate.IsZero() {
		return true
	}
	return ep.HasPublished() && !ep.Published.Before(minDate)
}

func limit(eps []domain.Episode, n int) []domain.Episode {
	if n > 0 && len(eps) > n {
		return eps[:n]
	}
	return eps
}
