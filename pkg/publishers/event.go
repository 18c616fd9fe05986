package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

// EventTypeTranscribed is the only event the harvester emits.
const EventTypeTranscribed = "episode.transcribed"

// Event is the payload published downstream for each processed episode.
type Event struct {
	Type        string            `json:"type"`
	ShowID      string            `json:"show_id"`
	Episode     domain.Episode    `json:"episode"`
	Transcript  domain.Transcript `json:"transcript"`
	CollectedAt time.Time         `json:"collected_at"`
}

// NewEvent builds the downstream event for an episode and its transcript.
func NewEvent(showID string, ep domain.Episode, tr domain.Transcript) Event {
	return Event{
		Type:        EventTypeTranscribed,
		ShowID:      showID,
		Episode:     ep,
		Transcript:  tr,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are the routing fields copied onto message metadata.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"event_type":        e.Type,
		"show_id":           e.ShowID,
		"episode_guid":      e.Episode.GUID,
		"transcript_source": string(e.Transcript.Source),
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
