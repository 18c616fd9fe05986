package feeds

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

const untitled = "Untitled"

// ParseDocument parses an RSS or Atom document into episodes in feed order. Items
// with no guid, link or enclosure are skipped.
func ParseDocument(raw []byte) ([]domain.Episode, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return []domain.Episode{}, nil
	}

	episodes := make([]domain.Episode, 0, len(feed.Items))
	for idx, item := range feed.Items {
		if item == nil {
			continue
		}
		ep := episodeFromItem(idx, item)
		// Without guid, link or enclosure there is no stable ledger key.
		if ep.GUID == "" {
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func episodeFromItem(idx int, item *gofeed.Item) domain.Episode {
	enclosure := enclosureURL(item)
	link := strings.TrimSpace(item.Link)

	// gofeed maps both the Atom <id> and the RSS <guid> onto GUID.
	guid := firstNonEmpty(item.GUID, link, enclosure)

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = untitled
	}

	ep := domain.Episode{
		GUID:         guid,
		Link:         link,
		Title:        title,
		EnclosureURL: enclosure,
		Position:     idx,
	}
	if item.PublishedParsed != nil {
		ep.Published = item.PublishedParsed.UTC()
	}
	return ep
}

// enclosureURL prefers the structured enclosures list; gofeed already folds Atom
// rel="enclosure" links into it, the Links scan covers feeds where it did not.
func enclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	for _, ext := range item.Extensions["atom"]["link"] {
		if ext.Attrs["rel"] == "enclosure" && strings.TrimSpace(ext.Attrs["href"]) != "" {
			return strings.TrimSpace(ext.Attrs["href"])
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
