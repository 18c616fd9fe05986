package transcripts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Splitter measures audio and cuts fixed windows out of it.
type Splitter interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
	Extract(ctx context.Context, src, dst string, start, length time.Duration) error
}

// FFmpegSplitter shells out to ffprobe/ffmpeg. Segments are stream-copied, not re-encoded.
type FFmpegSplitter struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

func NewFFmpegSplitter(ffmpegPath, ffprobePath string) *FFmpegSplitter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegSplitter{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath, Timeout: 2 * time.Minute}
}

func (s *FFmpegSplitter) Duration(ctx context.Context, path string) (time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.FFprobePath,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (s *FFmpegSplitter) Extract(ctx context.Context, src, dst string, start, length time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", src,
		"-c", "copy",
		"-y", dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg segment at %s: %w: %s", start, err, strings.TrimSpace(string(out)))
	}

	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("stat segment: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("segment at %s is empty", start)
	}
	return nil
}

func (s *FFmpegSplitter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
