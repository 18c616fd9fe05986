package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

func TestHTTPPublisherSendsEventJSON(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if r.Header.Get("X-Test") != "1" || r.Header.Get("X-Event-Type") != EventTypeTranscribed {
			t.Errorf("missing headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, Method: "put", Headers: map[string]string{"X-Test": "1", " ": "x"}},
	})
	pub, err := newHTTPPublisher(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("42", domain.Episode{GUID: "g1", Title: "Ep"}, domain.Transcript{Text: "hi", Source: domain.SourceFeedTag})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.Type != EventTypeTranscribed || got.ShowID != "42" || got.Episode.GUID != "g1" || got.Transcript.Text != "hi" {
		t.Fatalf("unexpected event received %#v", got)
	}
}

func TestHTTPPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), sanitizePublisherConfig(PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, TimeoutSeconds: 1},
	}), nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}
	if err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}
