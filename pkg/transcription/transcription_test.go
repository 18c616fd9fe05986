package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("ID3fake-audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeSendsMultipartUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("unexpected model %q", r.FormValue("model"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			body, _ := io.ReadAll(f)
			f.Close()
			if hdr.Filename != "clip.mp3" || string(body) != "ID3fake-audio" {
				t.Errorf("unexpected upload %s %q", hdr.Filename, body)
			}
		}
		_, _ = w.Write([]byte(`{"text":"  hello world "}`))
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("text = %q", got)
	}
}

func TestTranscribeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"file too large"}`, http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c, _ := New(Config{Provider: "groq", APIKey: "k", BaseURL: srv.URL})
	_, err := c.Transcribe(context.Background(), writeAudio(t))
	if err == nil || !strings.Contains(err.Error(), "413") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	c, _ := New(Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Transcribe(context.Background(), writeAudio(t)); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestNewPresets(t *testing.T) {
	c, err := New(Config{Provider: "Groq"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.endpoint != "https://api.groq.com/openai/v1/audio/transcriptions" || c.model != "whisper-large-v3" {
		t.Fatalf("unexpected groq preset %s %s", c.endpoint, c.model)
	}
	if _, err := New(Config{Provider: "assemblyai"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if got := c.WithAPIKey("other"); got.apiKey != "other" || c.apiKey != "" {
		t.Fatalf("WithAPIKey must copy")
	}
}
