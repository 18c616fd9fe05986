package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/httpclient"
)

// DefaultLookupURL is the public iTunes lookup endpoint.
const DefaultLookupURL = "https://itunes.apple.com/lookup"

var (
	// ErrLookupFailed wraps transport, status and decoding failures of the show directory.
	ErrLookupFailed = errors.New("show lookup failed")
	// ErrNoFeed means the directory answered but knows no feed for the show.
	ErrNoFeed = errors.New("no feed url for show")
	// ErrEpisodeNotFound means the directory has no usable record for an episode id.
	ErrEpisodeNotFound = errors.New("episode not found in directory")
)

// Resolver turns show identifiers into feeds and feeds into episodes.
type Resolver struct {
	client    httpclient.Client
	lookupURL string
	headers   map[string]string
}

// NewResolver builds a resolver. An empty lookupURL uses the iTunes endpoint.
func NewResolver(client httpclient.Client, lookupURL string) *Resolver {
	if client == nil {
		client = httpclient.NewRestyClient(30 * time.Second)
	}
	lookupURL = strings.TrimSpace(lookupURL)
	if lookupURL == "" {
		lookupURL = DefaultLookupURL
	}
	return &Resolver{
		client:    client,
		lookupURL: lookupURL,
		headers:   map[string]string{"Accept": "application/json, text/javascript, */*"},
	}
}

type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	WrapperType  string `json:"wrapperType"`
	Kind         string `json:"kind"`
	TrackID      int64  `json:"trackId"`
	CollectionID int64  `json:"collectionId"`
	FeedURL      string `json:"feedUrl"`
	ReleaseDate  string `json:"releaseDate"`
	TrackName    string `json:"trackName"`
}

// EpisodeLookup is the directory's view of one episode.
type EpisodeLookup struct {
	ShowID      string
	ReleaseDate time.Time
	Title       string
}

// ResolveFeedURL returns the feed URL of the first directory result for showID.
func (r *Resolver) ResolveFeedURL(ctx context.Context, showID string) (string, error) {
	showID = strings.TrimSpace(showID)
	if showID == "" {
		return "", fmt.Errorf("%w: show id is empty", ErrLookupFailed)
	}

	res, err := r.lookup(ctx, url.Values{"id": {showID}})
	if err != nil {
		return "", err
	}
	if len(res.Results) == 0 {
		return "", fmt.Errorf("%w: show %s", ErrNoFeed, showID)
	}
	feedURL := strings.TrimSpace(res.Results[0].FeedURL)
	if feedURL == "" {
		return "", fmt.Errorf("%w: show %s", ErrNoFeed, showID)
	}
	return feedURL, nil
}

// LookupEpisode returns the show id and release date for an episode id.
func (r *Resolver) LookupEpisode(ctx context.Context, episodeID string) (EpisodeLookup, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return EpisodeLookup{}, fmt.Errorf("%w: episode id is empty", ErrLookupFailed)
	}

	res, err := r.lookup(ctx, url.Values{"id": {episodeID}, "entity": {"podcastEpisode"}})
	if err != nil {
		return EpisodeLookup{}, err
	}
	if len(res.Results) == 0 {
		return EpisodeLookup{}, fmt.Errorf("%w: %s", ErrEpisodeNotFound, episodeID)
	}

	pick := res.Results[0]
	for _, candidate := range res.Results {
		if strconv.FormatInt(candidate.TrackID, 10) == episodeID && candidate.ReleaseDate != "" {
			pick = candidate
			break
		}
	}

	if pick.CollectionID == 0 || strings.TrimSpace(pick.ReleaseDate) == "" {
		return EpisodeLookup{}, fmt.Errorf("%w: %s missing show id or release date", ErrEpisodeNotFound, episodeID)
	}
	released, err := time.Parse(time.RFC3339, strings.TrimSpace(pick.ReleaseDate))
	if err != nil {
		return EpisodeLookup{}, fmt.Errorf("%w: parse release date %q: %v", ErrEpisodeNotFound, pick.ReleaseDate, err)
	}

	return EpisodeLookup{
		ShowID:      strconv.FormatInt(pick.CollectionID, 10),
		ReleaseDate: released.UTC(),
		Title:       pick.TrackName,
	}, nil
}

func (r *Resolver) lookup(ctx context.Context, params url.Values) (lookupResponse, error) {
	target := r.lookupURL + "?" + params.Encode()
	resp, err := r.client.Get(ctx, target, r.headers)
	if err != nil {
		return lookupResponse{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return lookupResponse{}, fmt.Errorf("%w: status %d body: %s", ErrLookupFailed, resp.StatusCode(), responseSnippet(resp.Body()))
	}

	var out lookupResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return lookupResponse{}, fmt.Errorf("%w: decode response: %w", ErrLookupFailed, err)
	}
	return out, nil
}

// FetchRawFeed downloads the feed document as-is.
func (r *Resolver) FetchRawFeed(ctx context.Context, feedURL string) ([]byte, error) {
	if strings.TrimSpace(feedURL) == "" {
		return nil, fmt.Errorf("feed url is empty")
	}

	resp, err := r.client.Get(ctx, feedURL, map[string]string{
		"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}
	return body, nil
}

// ParseEpisodes fetches and parses the feed. A feed without entries yields an empty slice.
func (r *Resolver) ParseEpisodes(ctx context.Context, feedURL string) ([]domain.Episode, error) {
	raw, err := r.FetchRawFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return ParseDocument(raw)
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
