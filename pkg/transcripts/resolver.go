package transcripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
	"github.com/samvad-hq/samvad-podcast-harvester/internal/logger"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/feeds"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-podcast-harvester/pkg/transcription"
)

// Options bounds the resolver's downloads. Zero values take the defaults below.
type Options struct {
	TranscriptMaxBytes  int64
	AudioMaxBytes       int64
	ChunkThresholdBytes int64
	SegmentLength       time.Duration
	TempDir             string
}

const (
	defaultTranscriptMaxBytes  = 25_000_000
	defaultAudioMaxBytes       = 25_000_000
	defaultChunkThresholdBytes = 20_000_000
	defaultSegmentLength       = 15 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.TranscriptMaxBytes <= 0 {
		o.TranscriptMaxBytes = defaultTranscriptMaxBytes
	}
	if o.AudioMaxBytes <= 0 {
		o.AudioMaxBytes = defaultAudioMaxBytes
	}
	if o.ChunkThresholdBytes <= 0 || o.ChunkThresholdBytes > o.AudioMaxBytes {
		o.ChunkThresholdBytes = min(defaultChunkThresholdBytes, o.AudioMaxBytes)
	}
	if o.SegmentLength <= 0 {
		o.SegmentLength = defaultSegmentLength
	}
	return o
}

// ProviderFactory binds a transcription provider to a credential.
type ProviderFactory func(credential string) transcription.Provider

// Resolver produces transcript text for an episode: the feed's transcript tag
// first, speech-to-text of the enclosure otherwise.
type Resolver struct {
	http     httpclient.Client
	provider ProviderFactory
	splitter Splitter
	opts     Options
	log      logger.Logger
}

func NewResolver(client httpclient.Client, provider ProviderFactory, splitter Splitter, opts Options, log logger.Logger) *Resolver {
	return &Resolver{
		http:     client,
		provider: provider,
		splitter: splitter,
		opts:     opts.withDefaults(),
		log:      logger.Ensure(log),
	}
}

// Resolve returns the transcript or a typed failure (ErrNoAudioSource,
// ErrMissingCredential, ErrTooLarge, ErrTranscriptionFailed). Feed transcript
// problems never surface; they only route to speech-to-text.
func (r *Resolver) Resolve(ctx context.Context, ep domain.Episode, rawFeed []byte, credential string) (domain.Transcript, error) {
	if ref, ok := feeds.FindTranscriptReference(rawFeed, ep); ok {
		text, err := r.fetchDocument(ctx, ref)
		if err == nil {
			r.log.InfoObj("feed transcript resolved", "transcript", map[string]any{
				"guid":  ep.GUID,
				"url":   ref.URL,
				"chars": len(text),
			})
			return domain.Transcript{Text: text, Source: domain.SourceFeedTag}, nil
		}
		r.log.WarnObj("feed transcript unusable; falling back to speech-to-text", "transcript", map[string]any{
			"guid":  ep.GUID,
			"url":   ref.URL,
			"error": err.Error(),
		})
	}

	if strings.TrimSpace(ep.EnclosureURL) == "" {
		return domain.Transcript{}, ErrNoAudioSource
	}
	credential = strings.TrimSpace(credential)
	if credential == "" || r.provider == nil {
		return domain.Transcript{}, ErrMissingCredential
	}

	text, err := r.transcribeAudio(ctx, ep.EnclosureURL, r.provider(credential))
	if err != nil {
		return domain.Transcript{}, err
	}
	return domain.Transcript{Text: text, Source: domain.SourceSpeechToText}, nil
}

var errEmptyDocument = errors.New("transcript document is empty")

// fetchDocument downloads a transcript document, refusing anything above
// TranscriptMaxBytes by declared length or by bytes actually read.
func (r *Resolver) fetchDocument(ctx context.Context, ref feeds.TranscriptRef) (string, error) {
	maxBytes := r.opts.TranscriptMaxBytes

	resp, err := r.http.Stream(ctx, ref.URL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	body := resp.Body()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("fetch transcript: status %d", resp.StatusCode())
	}
	if cl := resp.ContentLength(); cl > maxBytes {
		return "", fmt.Errorf("%w: transcript declares %d bytes, limit %d", ErrTooLarge, cl, maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: transcript exceeds %d bytes", ErrTooLarge, maxBytes)
	}

	format := detectFormat(ref.Type, resp.Header().Get("Content-Type"), ref.URL)
	text, err := decodeDocument(format, data)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w (%s)", errEmptyDocument, format)
	}
	return text, nil
}
