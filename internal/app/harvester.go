package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/config"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/logger"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/pipeline"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/storage"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/feeds"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/publishers"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/transcription"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/transcripts"
)

// runner is the part of the pipeline the harvester drives.
type runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Harvester owns the long-lived collaborators and schedules pipeline runs.
type Harvester struct {
	cfg         *config.Config
	pipeline    runner
	fanout      *publishers.Fanout
	store       storage.Store
	runInterval time.Duration
	log         logger.Logger
}

// NewHarvester builds a harvester runtime from config.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	stt, err := transcription.New(transcription.Config{
		Provider: cfg.TranscriptionProvider,
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.TranscriptionBaseURL,
		Model:    cfg.TranscriptionModel,
		Timeout:  cfg.TranscriptionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init transcription: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(ctx, cfg.StorageType, storage.Options{
		BBoltPath:     cfg.BBoltPath,
		PostgresDSN:   cfg.PostgresDSN,
		PostgresTable: cfg.PostgresTable,
	})
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	feedClient := httpclient.NewRestyClient(cfg.HTTPTimeout).SetUserAgent(cfg.UserAgent)
	// Audio downloads can take as long as the transcription itself.
	mediaClient := httpclient.NewRestyClient(cfg.TranscriptionTimeout).SetUserAgent(cfg.UserAgent)

	resolver := transcripts.NewResolver(
		mediaClient,
		func(credential string) transcription.Provider { return stt.WithAPIKey(credential) },
		transcripts.NewFFmpegSplitter(cfg.FFmpegPath, cfg.FFprobePath),
		transcripts.Options{
			TranscriptMaxBytes:  cfg.TranscriptMaxBytes,
			AudioMaxBytes:       cfg.AudioMaxBytes,
			ChunkThresholdBytes: cfg.AudioChunkThresholdBytes,
			SegmentLength:       cfg.AudioSegment,
		},
		log,
	)

	svc := pipeline.NewService(
		feeds.NewResolver(feedClient, cfg.LookupBaseURL),
		resolver,
		store,
		fanout,
		pipeline.Options{
			ShowID:          cfg.ShowID,
			AppleEpisodeURL: cfg.AppleEpisodeURL,
			MinPublished:    cfg.MinPublished,
			MaxEpisodes:     cfg.MaxEpisodesPerRun,
			LedgerPath:      cfg.LedgerPath,
			TranscriptsDir:  cfg.TranscriptsDir,
			Credential:      cfg.OpenAIAPIKey,
		},
		log,
	)

	return &Harvester{
		cfg:         cfg,
		pipeline:    svc,
		fanout:      fanout,
		store:       store,
		runInterval: cfg.RunInterval,
		log:         log,
	}, nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return publishers.NewFanout(nil), nil
	}
	cfgs, err := publishers.LoadConfigs(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), cfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(cfgs))
	for _, c := range cfgs {
		summaries = append(summaries, map[string]string{"id": c.ID, "type": c.Type})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Run performs one pass when no interval is configured and returns its error.
// Otherwise it repeats on the interval until ctx is cancelled, logging failures.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.pipeline == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()

	if h.runInterval <= 0 {
		return h.runOnce(ctx)
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"publishers_count": h.fanout.Size(),
		"run_interval":     h.runInterval.String(),
	})

	if err := h.runOnce(ctx); err != nil {
		h.log.ErrorObj("initial run failed", "error", err.Error())
	}

	ticker := time.NewTicker(h.runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := h.runOnce(ctx); err != nil {
				h.log.ErrorObj("scheduled run failed", "error", err.Error())
			}
		}
	}
}

func (h *Harvester) runOnce(ctx context.Context) error {
	start := time.Now()
	res, err := h.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	h.log.InfoObj("run completed", "run_meta", map[string]any{
		"show_id":    res.ShowID,
		"mode":       string(res.Mode),
		"selected":   res.Selected,
		"processed":  res.Processed,
		"failed":     res.Failed,
		"reconciled": res.Reconciled,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (h *Harvester) close() {
	if h == nil {
		return
	}
	h.fanout.Close()
	if h.store == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		h.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
