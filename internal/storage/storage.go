package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

// Package storage keeps processed-episode records outside the local ledger.

// Store is the durable record of processed episodes. The pipeline treats every call
// as best effort.
type Store interface {
	Close() error
	HasProcessedGUID(ctx context.Context, guid string) (bool, error)
	AllProcessedGUIDs(ctx context.Context) ([]string, error)
	RecordProcessed(ctx context.Context, rec domain.Record) error
}

// Options carries backend-specific settings.
type Options struct {
	BBoltPath     string
	PostgresDSN   string
	PostgresTable string
}

// NewStore creates the configured storage backend.
func NewStore(ctx context.Context, typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BBoltPath)
	case "postgres", "supabase":
		if strings.TrimSpace(opts.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return openPostgres(ctx, opts.PostgresDSN, opts.PostgresTable)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                                           { return nil }
func (noopStore) HasProcessedGUID(context.Context, string) (bool, error) { return false, nil }
func (noopStore) AllProcessedGUIDs(context.Context) ([]string, error)    { return nil, nil }
func (noopStore) RecordProcessed(context.Context, domain.Record) error   { return nil }
