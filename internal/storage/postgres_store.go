package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

const defaultPostgresTable = "podcast_transcripts"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// postgresStore keeps records in a single table keyed by guid. Works against
// Supabase's Postgres as well as a plain server.
type postgresStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func openPostgres(ctx context.Context, dsn, table string) (Store, error) {
	db, err := sql.Open("pgx", addConnectionParam(dsn, "default_query_exec_mode", "simple_protocol"))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store, err := newPostgresStore(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func newPostgresStore(db *sql.DB, table string) (*postgresStore, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		table = defaultPostgresTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid postgres table name %q", table)
	}
	return &postgresStore{db: db, table: table, now: time.Now}, nil
}

// EnsureSchema creates the records table when missing.
func (p *postgresStore) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	guid TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	published_at TIMESTAMPTZ NULL,
	transcript TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
)`, p.table)
	if _, err := p.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *postgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *postgresStore) HasProcessedGUID(ctx context.Context, guid string) (bool, error) {
	var exists bool
	q := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE guid = $1)`, p.table)
	if err := p.db.QueryRowContext(ctx, q, guid).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup guid: %w", err)
	}
	return exists, nil
}

func (p *postgresStore) AllProcessedGUIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT guid FROM %s`, p.table))
	if err != nil {
		return nil, fmt.Errorf("list guids: %w", err)
	}
	defer rows.Close()

	var guids []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan guid: %w", err)
		}
		guids = append(guids, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list guids: %w", err)
	}
	return guids, nil
}

// RecordProcessed upserts by guid.
func (p *postgresStore) RecordProcessed(ctx context.Context, rec domain.Record) error {
	if rec.GUID == "" {
		return fmt.Errorf("record guid is empty")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = p.now().UTC()
	}
	var published sql.NullTime
	if !rec.PublishedAt.IsZero() {
		published = sql.NullTime{Time: rec.PublishedAt.UTC(), Valid: true}
	}

	q := fmt.Sprintf(`INSERT INTO %s (guid, title, published_at, transcript, source, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (guid) DO UPDATE SET
	title = EXCLUDED.title,
	published_at = EXCLUDED.published_at,
	transcript = EXCLUDED.transcript,
	source = EXCLUDED.source,
	recorded_at = EXCLUDED.recorded_at`, p.table)

	if _, err := p.db.ExecContext(ctx, q, rec.GUID, rec.Title, published, rec.Text, rec.Source, rec.RecordedAt); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// addConnectionParam appends key=value to a URL or keyword/value DSN unless already present.
func addConnectionParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + key + "=" + value
	}
	return strings.TrimSpace(dsn) + " " + key + "=" + value
}
