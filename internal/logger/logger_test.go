package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestObjectHelpersCarryBaseFields(t *testing.T) {
	prev := S
	t.Cleanup(func() { S = prev })

	core, logs := observer.New(zapcore.InfoLevel)
	initWithCore(core, "harvester", "test")

	var log Logger = zapLogger{}
	log.InfoObj("episode processed", "pipeline_episode", map[string]any{"guid": "ep-1"})
	log.DebugObj("dropped below level", "k", 1)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["app"] != "harvester" || fields["env"] != "test" {
		t.Fatalf("missing base fields: %v", fields)
	}
	obj, ok := fields["pipeline_episode"].(map[string]any)
	if !ok || obj["guid"] != "ep-1" {
		t.Fatalf("unexpected object field: %#v", fields["pipeline_episode"])
	}
}

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	prev := S
	S = nil
	t.Cleanup(func() { S = prev })

	InfoObj("ignored", "k", 1)
	ErrorObj("ignored", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close before Init: %v", err)
	}
	Ensure(nil).WarnObj("ignored", "k", 1)
}
