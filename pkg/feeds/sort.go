package feeds

import (
	"slices"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

// SortEpisodes returns a newest-first copy of episodes.
//
// Keys, in order: dated before dateless, publish time descending, feed position ascending.
func SortEpisodes(episodes []domain.Episode) []domain.Episode {
	out := slices.Clone(episodes)
	slices.SortStableFunc(out, compareNewestFirst)
	return out
}

func compareNewestFirst(a, b domain.Episode) int {
	if a.HasPublished() != b.HasPublished() {
		if a.HasPublished() {
			return -1
		}
		return 1
	}
	if a.HasPublished() {
		if c := b.Published.Compare(a.Published); c != 0 {
			return c
		}
	}
	switch {
	case a.Position < b.Position:
		return -1
	case a.Position > b.Position:
		return 1
	default:
		return 0
	}
}
