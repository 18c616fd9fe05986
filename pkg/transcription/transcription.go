package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-podcast-harvester/pkg/httpclient"
)

// Provider turns an audio file on disk into text.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ErrEmptyTranscript is returned when the provider answers 200 with no text.
var ErrEmptyTranscript = errors.New("transcription returned empty text")

// Config selects and configures an OpenAI-compatible transcription endpoint.
type Config struct {
	Provider string // openai | groq
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

type preset struct {
	baseURL string
	model   string
}

var presets = map[string]preset{
	"openai": {baseURL: "https://api.openai.com/v1", model: "whisper-1"},
	"groq":   {baseURL: "https://api.groq.com/openai/v1", model: "whisper-large-v3"},
}

// Client speaks the /audio/transcriptions multipart protocol shared by OpenAI and Groq.
type Client struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	model    string
}

// New builds a Client from cfg, filling base URL and model from the provider preset.
func New(cfg Config) (*Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "openai"
	}
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = p.baseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = p.model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		http:     httpclient.NewRestyHTTPClient(timeout),
		endpoint: endpointFor(base),
		apiKey:   cfg.APIKey,
		model:    model,
	}, nil
}

// WithAPIKey returns a copy that authenticates with key.
func (c *Client) WithAPIKey(key string) *Client {
	cp := *c
	cp.apiKey = key
	return &cp
}

func endpointFor(base string) string {
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, "/audio/transcriptions") {
		return base
	}
	return base + "/audio/transcriptions"
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	req := c.http.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(map[string]string{
			"model":           c.model,
			"response_format": "json",
		})
	if c.apiKey != "" {
		req.SetAuthToken(c.apiKey)
	}

	resp, err := req.Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("transcription api status %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}

	var out transcriptionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
