package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadConfigsReturnsEnabledOnly(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: hook-off
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: hook
    type: HTTP
    http:
      url: " https://example.com/2 "
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:1:t
      region: us-east-1
  - id: gcp
    type: pubsub
    pubsub:
      project_id: p
      topic: episodes
`)
	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 3 {
		t.Fatalf("expected 3 enabled publishers, got %#v", cfgs)
	}
	if cfgs[0].ID != "hook" || cfgs[0].Type != TypeHTTP || cfgs[0].HTTP.URL != "https://example.com/2" || cfgs[0].HTTP.Method != "POST" {
		t.Fatalf("http config not sanitized: %#v", cfgs[0].HTTP)
	}
}

func TestLoadConfigsJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs/q","region":"eu-west-1"}}]}`)
	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 1 || cfgs[0].SQS.Region != "eu-west-1" {
		t.Fatalf("unexpected configs %#v", cfgs)
	}
}

func TestLoadConfigsRejectsDuplicatesAndInvalid(t *testing.T) {
	dup := writeFile(t, "dup.yaml", `
publishers:
  - {id: a, type: http, http: {url: "https://x"}}
  - {id: a, type: http, http: {url: "https://y"}}
`)
	if _, err := LoadConfigs(dup); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	bad := writeFile(t, "bad.yaml", `
publishers:
  - {id: q, type: sqs, sqs: {uri: "https://sqs/q"}}
`)
	if _, err := LoadConfigs(bad); err == nil {
		t.Fatalf("expected validation error for missing region")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := []PublisherConfig{
		{Type: TypeHTTP},
		{ID: "h"},
		{ID: "h", Type: TypeHTTP},
		{ID: "p", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "x"}},
		{ID: "k", Type: "kafka"},
	}
	for i, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
