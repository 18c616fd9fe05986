package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/ledger"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/logger"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/selector"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/storage"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/feeds"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/publishers"
)

// ErrNoShow means neither the configuration nor the episode URL yielded a show id.
var ErrNoShow = errors.New("show id could not be determined")

// FeedSource resolves a show into its feed document.
type FeedSource interface {
	ResolveFeedURL(ctx context.Context, showID string) (string, error)
	LookupEpisode(ctx context.Context, episodeID string) (feeds.EpisodeLookup, error)
	FetchRawFeed(ctx context.Context, feedURL string) ([]byte, error)
}

// TranscriptResolver produces transcript text for one episode.
type TranscriptResolver interface {
	Resolve(ctx context.Context, ep domain.Episode, rawFeed []byte, credential string) (domain.Transcript, error)
}

// EventPublisher announces processed episodes downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Options controls one harvesting pass.
type Options struct {
	ShowID          string
	AppleEpisodeURL string
	MinPublished    time.Time
	MaxEpisodes     int
	LedgerPath      string
	TranscriptsDir  string
	Credential      string
}

// Result summarises a run.
type Result struct {
	ShowID     string
	FeedURL    string
	Mode       selector.Mode
	Selected   int
	Processed  int
	Failed     int
	Reconciled int
}

// Service runs the resolve, select, transcribe and record sequence for one show.
type Service struct {
	feeds       FeedSource
	transcripts TranscriptResolver
	store       storage.Store
	publisher   EventPublisher
	opts        Options
	log         logger.Logger
	now         func() time.Time
}

// NewService wires a pipeline. store and publisher may be nil.
func NewService(src FeedSource, tr TranscriptResolver, store storage.Store, pub EventPublisher, opts Options, log logger.Logger) *Service {
	if store == nil {
		store, _ = storage.NewStore(context.Background(), "none", storage.Options{})
	}
	return &Service{
		feeds:       src,
		transcripts: tr,
		store:       store,
		publisher:   pub,
		opts:        opts,
		log:         logger.Ensure(log),
		now:         time.Now,
	}
}

// Run executes one pass. Only failures that prevent reading the feed are returned;
// per-episode problems are logged and counted.
func (s *Service) Run(ctx context.Context) (Result, error) {
	if s == nil || s.feeds == nil || s.transcripts == nil {
		return Result{}, fmt.Errorf("pipeline service is not initialized")
	}

	showID, anchor, err := s.resolveShow(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{ShowID: showID}

	feedURL, err := s.feeds.ResolveFeedURL(ctx, showID)
	if err != nil {
		return res, fmt.Errorf("resolve feed for show %s: %w", showID, err)
	}
	res.FeedURL = feedURL

	raw, err := s.feeds.FetchRawFeed(ctx, feedURL)
	if err != nil {
		return res, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	parsed, err := feeds.ParseDocument(raw)
	if err != nil {
		return res, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	episodes := feeds.SortEpisodes(parsed)

	led, err := ledger.Open(s.opts.LedgerPath, s.log)
	if err != nil {
		return res, err
	}
	s.seedLedger(ctx, led)

	if baseline, ok := led.LatestPublished(); ok && !anchor.IsZero() && baseline.After(anchor) {
		s.log.InfoObj("ledger baseline is newer than anchor", "pipeline_anchor", map[string]any{
			"anchor":   anchor.Format(time.RFC3339),
			"baseline": baseline.Format(time.RFC3339),
		})
		anchor = baseline
	}

	picked := selector.Select(episodes, led, selector.Criteria{
		StartingDate: anchor,
		MinDate:      s.opts.MinPublished,
		MaxCount:     s.opts.MaxEpisodes,
	})
	res.Mode = picked.Mode
	res.Selected = len(picked.Episodes)

	s.log.InfoObj("episodes selected", "pipeline_selection", map[string]any{
		"show_id":        showID,
		"feed_url":       feedURL,
		"feed_episodes":  len(episodes),
		"selected":       len(picked.Episodes),
		"mode":           string(picked.Mode),
		"ledger_entries": led.Len(),
	})

	for _, ep := range picked.Episodes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		got, err := s.processEpisode(ctx, showID, ep, raw, led)
		if err != nil {
			return res, err
		}
		switch got {
		case outcomeProcessed:
			res.Processed++
		case outcomeReconciled:
			res.Reconciled++
		case outcomeFailed:
			res.Failed++
		}
	}

	s.log.InfoObj("pipeline run completed", "pipeline_result", res)
	return res, nil
}

// resolveShow picks the show id and optional anchor date. An anchor lookup failure
// is tolerated as long as a show id is known some other way.
func (s *Service) resolveShow(ctx context.Context) (string, time.Time, error) {
	showID := strings.TrimSpace(s.opts.ShowID)
	episodeURL := strings.TrimSpace(s.opts.AppleEpisodeURL)
	if showID == "" && episodeURL != "" {
		showID, _ = feeds.ShowIDFromURL(episodeURL)
	}

	var anchor time.Time
	if episodeURL != "" {
		if episodeID, ok := feeds.EpisodeIDFromURL(episodeURL); ok {
			info, err := s.feeds.LookupEpisode(ctx, episodeID)
			if err != nil {
				s.log.WarnObj("anchor episode lookup failed", "pipeline_anchor_error", map[string]any{
					"episode_url": episodeURL,
					"error":       err.Error(),
				})
			} else {
				anchor = info.ReleaseDate
				if showID == "" {
					showID = info.ShowID
				}
			}
		} else {
			s.log.WarnObj("episode url has no episode id", "pipeline_anchor_error", map[string]any{
				"episode_url": episodeURL,
			})
		}
	}

	if showID == "" {
		return "", time.Time{}, ErrNoShow
	}
	return showID, anchor, nil
}

// seedLedger copies guids from the store into a fresh ledger so a lost ledger file
// does not trigger reprocessing.
func (s *Service) seedLedger(ctx context.Context, led *ledger.Ledger) {
	if led.Len() > 0 {
		return
	}
	guids, err := s.store.AllProcessedGUIDs(ctx)
	if err != nil {
		s.log.WarnObj("could not list stored guids", "pipeline_seed_error", map[string]any{"error": err.Error()})
		return
	}
	n, err := led.SeedIfEmpty(guids)
	if err != nil {
		s.log.WarnObj("ledger seed failed", "pipeline_seed_error", map[string]any{"error": err.Error()})
		return
	}
	if n > 0 {
		s.log.InfoObj("ledger seeded from store", "pipeline_seed", map[string]any{"guids": n})
	}
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeReconciled
	outcomeFailed
)

// processEpisode returns an error only when the ledger cannot be written.
func (s *Service) processEpisode(ctx context.Context, showID string, ep domain.Episode, raw []byte, led *ledger.Ledger) (outcome, error) {
	fields := map[string]any{"guid": ep.GUID, "title": ep.Title}

	seen, err := s.store.HasProcessedGUID(ctx, ep.GUID)
	if err != nil {
		s.log.WarnObj("store lookup failed", "pipeline_store_error", withErr(fields, err))
	}
	if seen {
		if err := led.MarkProcessed(ep.GUID, ep.Published); err != nil {
			return outcomeFailed, fmt.Errorf("update ledger for %s: %w", ep.GUID, err)
		}
		s.log.InfoObj("episode already stored; ledger reconciled", "pipeline_reconciled", fields)
		return outcomeReconciled, nil
	}

	tr, err := s.transcripts.Resolve(ctx, ep, raw, s.opts.Credential)
	if err != nil {
		s.log.ErrorObj("transcript unavailable", "pipeline_episode_error", withErr(fields, err))
		return outcomeFailed, nil
	}

	if dir := strings.TrimSpace(s.opts.TranscriptsDir); dir != "" {
		path, err := storage.WriteTranscript(dir, ep.Title, tr.Text)
		if err != nil {
			s.log.WarnObj("transcript archive failed", "pipeline_archive_error", withErr(fields, err))
		} else {
			s.log.DebugObj("transcript archived", "pipeline_archive", map[string]any{"guid": ep.GUID, "path": path})
		}
	}

	rec := domain.Record{
		GUID:        ep.GUID,
		Title:       ep.Title,
		PublishedAt: ep.Published,
		Text:        tr.Text,
		Source:      string(tr.Source),
		RecordedAt:  s.now().UTC(),
	}
	if err := s.store.RecordProcessed(ctx, rec); err != nil {
		s.log.WarnObj("store record failed", "pipeline_store_error", withErr(fields, err))
	}

	if s.publisher != nil {
		delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(showID, ep, tr))
		if err != nil {
			s.log.WarnObj("event publish failed", "pipeline_publish_error", map[string]any{
				"guid":      ep.GUID,
				"delivered": delivered,
				"error":     err.Error(),
			})
		}
	}

	if err := led.MarkProcessed(ep.GUID, ep.Published); err != nil {
		return outcomeFailed, fmt.Errorf("update ledger for %s: %w", ep.GUID, err)
	}

	s.log.InfoObj("episode processed", "pipeline_episode", map[string]any{
		"guid":   ep.GUID,
		"title":  ep.Title,
		"source": string(tr.Source),
		"chars":  len(tr.Text),
	})
	return outcomeProcessed, nil
}

func withErr(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
