package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-podcast-harvester/internal/domain"
)

const episodeBucket = "episodes"

// boltStore keeps one JSON record per guid. Records never expire.
type boltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(episodeBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, now: time.Now}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) HasProcessedGUID(_ context.Context, guid string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}
	var exists bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(episodeBucket))
		if bucket == nil {
			return fmt.Errorf("episode bucket missing")
		}
		exists = bucket.Get([]byte(guid)) != nil
		return nil
	})
	return exists, err
}

func (b *boltStore) AllProcessedGUIDs(_ context.Context) ([]string, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}
	var guids []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(episodeBucket))
		if bucket == nil {
			return fmt.Errorf("episode bucket missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			guids = append(guids, string(k))
			return nil
		})
	})
	return guids, err
}

// RecordProcessed upserts the record under its guid.
func (b *boltStore) RecordProcessed(_ context.Context, rec domain.Record) error {
	if b == nil || b.db == nil {
		return nil
	}
	if rec.GUID == "" {
		return fmt.Errorf("record guid is empty")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = b.now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(episodeBucket))
		if bucket == nil {
			return fmt.Errorf("episode bucket missing")
		}
		return bucket.Put([]byte(rec.GUID), payload)
	})
}

// record loads a stored record; used by tests and diagnostics.
func (b *boltStore) record(guid string) (domain.Record, bool, error) {
	var (
		rec   domain.Record
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(episodeBucket)).Get([]byte(guid))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	return rec, found, err
}
