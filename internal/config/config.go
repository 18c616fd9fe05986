package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultTranscriptMaxBytes = 25_000_000
	defaultAudioMaxBytes      = 25_000_000
	defaultChunkThreshold     = 20_000_000
	defaultSegmentSeconds     = 15 * 60
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	ShowID            string        `mapstructure:"show_id"`
	AppleEpisodeURL   string        `mapstructure:"apple_episode_url"`
	MinPublishedRaw   string        `mapstructure:"min_published_date"`
	MinPublished      time.Time     `mapstructure:"-"`
	MaxEpisodesPerRun int           `mapstructure:"max_episodes_per_run"`
	RunIntervalSecs   int64         `mapstructure:"run_interval"`
	RunInterval       time.Duration `mapstructure:"-"`

	DataDir        string `mapstructure:"data_dir"`
	LedgerPath     string `mapstructure:"ledger_path"`
	TranscriptsDir string `mapstructure:"transcripts_dir"`

	StorageType   string `mapstructure:"storage_type"`
	BBoltPath     string `mapstructure:"bbolt_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`

	PublishersFile string `mapstructure:"publishers_file"`

	LookupBaseURL      string        `mapstructure:"lookup_base_url"`
	UserAgent          string        `mapstructure:"user_agent"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	TranscriptionProvider       string        `mapstructure:"transcription_provider"`
	OpenAIAPIKey                string        `mapstructure:"openai_api_key"`
	TranscriptionBaseURL        string        `mapstructure:"transcription_base_url"`
	TranscriptionModel          string        `mapstructure:"transcription_model"`
	TranscriptionTimeoutSeconds int64         `mapstructure:"transcription_timeout_seconds"`
	TranscriptionTimeout        time.Duration `mapstructure:"-"`

	TranscriptMaxBytes       int64         `mapstructure:"transcript_max_bytes"`
	AudioMaxBytes            int64         `mapstructure:"audio_max_bytes"`
	AudioChunkThresholdBytes int64         `mapstructure:"audio_chunk_threshold_bytes"`
	AudioSegmentSeconds      int64         `mapstructure:"audio_segment_seconds"`
	AudioSegment             time.Duration `mapstructure:"-"`
	FFmpegPath               string        `mapstructure:"ffmpeg_path"`
	FFprobePath              string        `mapstructure:"ffprobe_path"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-podcast-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("show_id", "")
	v.SetDefault("apple_episode_url", "")
	v.SetDefault("min_published_date", "")
	v.SetDefault("max_episodes_per_run", 0)
	v.SetDefault("run_interval", 0) // seconds; 0 runs once

	v.SetDefault("data_dir", "./data")
	v.SetDefault("ledger_path", "")
	v.SetDefault("transcripts_dir", "")

	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/episodes.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("postgres_table", "podcast_transcripts")

	v.SetDefault("publishers_file", "")

	v.SetDefault("lookup_base_url", "https://itunes.apple.com/lookup")
	v.SetDefault("user_agent", "samvad-podcast-harvester/1.0")
	v.SetDefault("http_timeout_seconds", 30)

	v.SetDefault("transcription_provider", "openai")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("transcription_base_url", "")
	v.SetDefault("transcription_model", "")
	v.SetDefault("transcription_timeout_seconds", 600)

	v.SetDefault("transcript_max_bytes", defaultTranscriptMaxBytes)
	v.SetDefault("audio_max_bytes", defaultAudioMaxBytes)
	v.SetDefault("audio_chunk_threshold_bytes", defaultChunkThreshold)
	v.SetDefault("audio_segment_seconds", defaultSegmentSeconds)
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
}

func (cfg *Config) finalize() error {
	cfg.ShowID = strings.TrimSpace(cfg.ShowID)
	cfg.AppleEpisodeURL = strings.TrimSpace(cfg.AppleEpisodeURL)
	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))
	cfg.TranscriptionProvider = strings.ToLower(strings.TrimSpace(cfg.TranscriptionProvider))

	if cfg.MaxEpisodesPerRun < 0 {
		return fmt.Errorf("invalid max_episodes_per_run (must be >= 0, 0 means unlimited)")
	}
	if cfg.RunIntervalSecs < 0 {
		return fmt.Errorf("invalid run_interval (must be >= 0 seconds)")
	}
	cfg.RunInterval = time.Duration(cfg.RunIntervalSecs) * time.Second

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.TranscriptionTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid transcription_timeout_seconds (must be positive seconds)")
	}
	cfg.TranscriptionTimeout = time.Duration(cfg.TranscriptionTimeoutSeconds) * time.Second

	if cfg.TranscriptMaxBytes <= 0 || cfg.AudioMaxBytes <= 0 || cfg.AudioChunkThresholdBytes <= 0 {
		return fmt.Errorf("size limits must be positive byte counts")
	}
	if cfg.AudioChunkThresholdBytes > cfg.AudioMaxBytes {
		return fmt.Errorf("audio_chunk_threshold_bytes (%d) must not exceed audio_max_bytes (%d)", cfg.AudioChunkThresholdBytes, cfg.AudioMaxBytes)
	}
	if cfg.AudioSegmentSeconds <= 0 {
		return fmt.Errorf("invalid audio_segment_seconds (must be positive seconds)")
	}
	cfg.AudioSegment = time.Duration(cfg.AudioSegmentSeconds) * time.Second

	if raw := strings.TrimSpace(cfg.MinPublishedRaw); raw != "" {
		t, err := ParseDate(raw)
		if err != nil {
			return fmt.Errorf("invalid min_published_date %q: %w", raw, err)
		}
		cfg.MinPublished = t
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.LedgerPath) == "" {
		cfg.LedgerPath = filepath.Join(cfg.DataDir, "state.json")
	}
	if strings.TrimSpace(cfg.TranscriptsDir) == "" {
		cfg.TranscriptsDir = filepath.Join(cfg.DataDir, "transcripts")
	}

	if cfg.StorageType == "postgres" && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return fmt.Errorf("postgres storage requires postgres_dsn")
	}

	return nil
}

// ParseDate accepts a calendar date (2006-01-02), a naive timestamp, or RFC3339 and returns it in UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// Redacted returns a copy safe for logging.
func (cfg Config) Redacted() Config {
	if cfg.OpenAIAPIKey != "" {
		cfg.OpenAIAPIKey = "***"
	}
	if cfg.PostgresDSN != "" {
		cfg.PostgresDSN = "***"
	}
	return cfg
}
