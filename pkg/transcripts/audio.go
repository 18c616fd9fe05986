package transcripts

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-podcast-harvester/pkg/transcription"
)

// probeSize asks the server for the enclosure size. It returns -1 when the size is
// unknown, including when the probe itself fails.
func (r *Resolver) probeSize(ctx context.Context, audioURL string) int64 {
	resp, err := r.http.Head(ctx, audioURL, nil)
	if err != nil {
		r.log.WarnObj("audio size probe failed", "audio_probe", map[string]any{
			"url":   audioURL,
			"error": err.Error(),
		})
		return -1
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return -1
	}
	n, err := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// download streams the enclosure into dir, aborting once more than AudioMaxBytes
// have been read.
func (r *Resolver) download(ctx context.Context, audioURL, dir string) (string, int64, error) {
	maxBytes := r.opts.AudioMaxBytes

	if size := r.probeSize(ctx, audioURL); size > maxBytes {
		return "", 0, fmt.Errorf("%w: audio reports %d bytes, limit %d", ErrTooLarge, size, maxBytes)
	}

	resp, err := r.http.Stream(ctx, audioURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("download audio: %w", err)
	}
	body := resp.Body()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", 0, fmt.Errorf("download audio: status %d", resp.StatusCode())
	}
	if cl := resp.ContentLength(); cl > maxBytes {
		return "", 0, fmt.Errorf("%w: audio response is %d bytes, limit %d", ErrTooLarge, cl, maxBytes)
	}

	dst := filepath.Join(dir, "podcast_"+uuid.NewString()+audioExt(audioURL))
	f, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("create audio temp file: %w", err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(body, maxBytes+1))
	closeErr := f.Close()
	if copyErr != nil {
		return "", 0, fmt.Errorf("download audio: %w", copyErr)
	}
	if closeErr != nil {
		return "", 0, fmt.Errorf("close audio temp file: %w", closeErr)
	}
	if n > maxBytes {
		return "", 0, fmt.Errorf("%w: audio exceeded %d bytes while downloading", ErrTooLarge, maxBytes)
	}
	return dst, n, nil
}

// transcribeAudio downloads the enclosure and transcribes it, in segments when the
// file is above the chunk threshold. Everything written under the scratch directory
// is removed before returning.
func (r *Resolver) transcribeAudio(ctx context.Context, audioURL string, provider transcription.Provider) (string, error) {
	dir, err := os.MkdirTemp(r.opts.TempDir, "episode-audio-")
	if err != nil {
		return "", fmt.Errorf("create audio scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	audioPath, size, err := r.download(ctx, audioURL, dir)
	if err != nil {
		return "", err
	}
	r.log.InfoObj("audio downloaded", "audio", map[string]any{
		"url":   audioURL,
		"bytes": size,
	})

	if size <= r.opts.ChunkThresholdBytes {
		return r.transcribeOne(ctx, provider, audioPath)
	}
	return r.transcribeSegments(ctx, provider, audioPath, dir)
}

func (r *Resolver) transcribeOne(ctx context.Context, provider transcription.Provider, audioPath string) (string, error) {
	text, err := provider.Transcribe(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscriptionFailed)
	}
	return text, nil
}

// transcribeSegments cuts ceil(duration/segment) windows and joins the ones that
// transcribe successfully, in order. It fails only if every window fails.
func (r *Resolver) transcribeSegments(ctx context.Context, provider transcription.Provider, audioPath, dir string) (string, error) {
	seg := r.opts.SegmentLength
	dur, err := r.splitter.Duration(ctx, audioPath)
	if err != nil || dur <= 0 {
		r.log.WarnObj("audio duration unknown; transcribing whole file", "audio_split", map[string]any{
			"path":  audioPath,
			"error": errString(err),
		})
		return r.transcribeOne(ctx, provider, audioPath)
	}

	count := SegmentCount(dur, seg)
	if count <= 1 {
		return r.transcribeOne(ctx, provider, audioPath)
	}
	r.log.InfoObj("splitting audio", "audio_split", map[string]any{
		"duration_seconds": int(dur.Seconds()),
		"segments":         count,
	})

	ext := filepath.Ext(audioPath)
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		segPath := filepath.Join(dir, fmt.Sprintf("segment_%03d%s", i+1, ext))
		if err := r.splitter.Extract(ctx, audioPath, segPath, time.Duration(i)*seg, seg); err != nil {
			r.log.WarnObj("audio segment extraction failed", "audio_segment", map[string]any{
				"segment": i + 1,
				"error":   err.Error(),
			})
			continue
		}

		text, err := provider.Transcribe(ctx, segPath)
		_ = os.Remove(segPath)
		text = strings.TrimSpace(text)
		if err != nil || text == "" {
			r.log.WarnObj("audio segment transcription failed", "audio_segment", map[string]any{
				"segment": i + 1,
				"error":   errString(err),
			})
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: all %d segments failed", ErrTranscriptionFailed, count)
	}
	r.log.InfoObj("segments transcribed", "audio_split", map[string]any{
		"segments":  count,
		"succeeded": len(parts),
	})
	return strings.Join(parts, " "), nil
}

// SegmentCount is the number of fixed windows needed to cover dur.
func SegmentCount(dur, segment time.Duration) int {
	if dur <= 0 || segment <= 0 {
		return 1
	}
	return int(math.Ceil(float64(dur) / float64(segment)))
}

func audioExt(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if len(ext) > 1 && len(ext) <= 5 {
			return ext
		}
	}
	return ".mp3"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
