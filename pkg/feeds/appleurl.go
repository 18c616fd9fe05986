package feeds

import "regexp"

var (
	showIDPattern    = regexp.MustCompile(`id(\d+)`)
	episodeIDPattern = regexp.MustCompile(`[?&]i=(\d+)`)
)

// ShowIDFromURL extracts the numeric show id from an Apple Podcasts URL.
func ShowIDFromURL(rawURL string) (string, bool) {
	m := showIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EpisodeIDFromURL extracts the numeric episode id (the i= query parameter).
func EpisodeIDFromURL(rawURL string) (string, bool) {
	m := episodeIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}
