package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

func newMockPostgres(t *testing.T, table string) (*postgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := newPostgresStore(db, table)
	if err != nil {
		t.Fatalf("newPostgresStore: %v", err)
	}
	store.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestPostgresEnsureSchema(t *testing.T) {
	store, mock := newMockPostgres(t, "")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS podcast_transcripts (")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresHasProcessedGUID(t *testing.T) {
	store, mock := newMockPostgres(t, "public.episodes")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM public.episodes WHERE guid = $1)")).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	seen, err := store.HasProcessedGUID(context.Background(), "g1")
	if err != nil || !seen {
		t.Fatalf("expected seen guid, seen=%v err=%v", seen, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAllProcessedGUIDs(t *testing.T) {
	store, mock := newMockPostgres(t, "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT guid FROM podcast_transcripts")).
		WillReturnRows(sqlmock.NewRows([]string{"guid"}).AddRow("a").AddRow("b"))

	guids, err := store.AllProcessedGUIDs(context.Background())
	if err != nil {
		t.Fatalf("AllProcessedGUIDs: %v", err)
	}
	if len(guids) != 2 || guids[0] != "a" || guids[1] != "b" {
		t.Fatalf("unexpected guids %v", guids)
	}
}

func TestPostgresRecordProcessedUpserts(t *testing.T) {
	store, mock := newMockPostgres(t, "")
	pub := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO podcast_transcripts (guid, title, published_at, transcript, source, recorded_at)")).
		WithArgs("g1", "Title", sql.NullTime{Time: pub, Valid: true}, "text", "speech-to-text", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordProcessed(context.Background(), domain.Record{
		GUID: "g1", Title: "Title", PublishedAt: pub, Text: "text", Source: "speech-to-text",
	})
	if err != nil {
		t.Fatalf("RecordProcessed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRecordProcessedWrapsErrors(t *testing.T) {
	store, mock := newMockPostgres(t, "")
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO podcast_transcripts").WillReturnError(boom)

	err := store.RecordProcessed(context.Background(), domain.Record{GUID: "g1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPostgresRejectsUnsafeTableName(t *testing.T) {
	if _, err := newPostgresStore(nil, "episodes; DROP TABLE x"); err == nil {
		t.Fatalf("expected invalid table name error")
	}
}

func TestAddConnectionParam(t *testing.T) {
	if got := addConnectionParam("postgres://u@h/db", "k", "v"); got != "postgres://u@h/db?k=v" {
		t.Fatalf("url form: %s", got)
	}
	if got := addConnectionParam("postgres://u@h/db?sslmode=require", "k", "v"); got != "postgres://u@h/db?sslmode=require&k=v" {
		t.Fatalf("url form with query: %s", got)
	}
	if got := addConnectionParam("host=h dbname=db", "k", "v"); got != "host=h dbname=db k=v" {
		t.Fatalf("keyword form: %s", got)
	}
	if got := addConnectionParam("host=h k=x", "k", "v"); got != "host=h k=x" {
		t.Fatalf("existing key must be kept: %s", got)
	}
}
