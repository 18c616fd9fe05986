package domain

import "time"

// Domain contains core models shared by the harvester packages.

// Episode is one feed entry, immutable once built from a feed fetch.
type Episode struct {
	GUID         string    `json:"guid"`
	Link         string    `json:"link"`
	Title        string    `json:"title"`
	Published    time.Time `json:"published,omitempty"` // zero when the feed has no parseable date
	EnclosureURL string    `json:"enclosure_url,omitempty"`
	Position     int       `json:"position"`
}

// HasPublished reports whether the feed supplied a publish date.
func (e Episode) HasPublished() bool {
	return !e.Published.IsZero()
}

// TranscriptSource identifies where transcript text came from.
type TranscriptSource string

const (
	SourceFeedTag      TranscriptSource = "feed-tag"
	SourceSpeechToText TranscriptSource = "speech-to-text"
)

// Transcript is a successfully resolved transcript.
type Transcript struct {
	Text   string           `json:"text"`
	Source TranscriptSource `json:"source"`
}

// Record is what the storage collaborator keeps for a processed episode.
type Record struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Text        string    `json:"text"`
	Source      string    `json:"source,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}
