package feeds

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

// TranscriptRef points at a transcript document declared inside a feed item.
type TranscriptRef struct {
	URL  string
	Type string
}

// Generic feed parsers drop item-level extension tags like <podcast:transcript>,
// so the raw document is scanned separately. Tags match by local name, which
// covers both the namespaced and the bare form.
type rawFeed struct {
	ChannelItems []rawItem `xml:"channel>item"`
	RootItems    []rawItem `xml:"item"`
}

type rawItem struct {
	GUIDs       []string        `xml:"guid"`
	Links       []string        `xml:"link"`
	Enclosures  []rawEnclosure  `xml:"enclosure"`
	Transcripts []rawTranscript `xml:"transcript"`
}

type rawEnclosure struct {
	URL string `xml:"url,attr"`
}

type rawTranscript struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// FindTranscriptReference locates the item matching ep in the raw feed and returns its
// first transcript reference. An unparsable document yields no reference.
func FindTranscriptReference(raw []byte, ep domain.Episode) (TranscriptRef, bool) {
	items, err := scanItems(raw)
	if err != nil {
		return TranscriptRef{}, false
	}

	for _, item := range items {
		if !item.matches(ep) {
			continue
		}
		for _, t := range item.Transcripts {
			url := firstNonEmpty(t.URL, t.Text)
			if url != "" {
				return TranscriptRef{URL: url, Type: strings.TrimSpace(t.Type)}, true
			}
		}
	}
	return TranscriptRef{}, false
}

func scanItems(raw []byte) ([]rawItem, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var feed rawFeed
	if err := dec.Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode feed xml: %w", err)
	}
	return append(feed.ChannelItems, feed.RootItems...), nil
}

// matches succeeds when any of the item's guid, link or enclosure url equals any of
// the episode's guid, link or enclosure url.
func (it rawItem) matches(ep domain.Episode) bool {
	candidates := []string{firstNonEmpty(it.GUIDs...), firstNonEmpty(it.Links...)}
	for _, enc := range it.Enclosures {
		if u := strings.TrimSpace(enc.URL); u != "" {
			candidates = append(candidates, u)
			break
		}
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if c == ep.GUID || c == ep.Link || c == ep.EnclosureURL {
			return true
		}
	}
	return false
}
