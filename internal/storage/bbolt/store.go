// Package bbolt provides the embedded BoltDB cache store.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/fieldschool/internal/platform/timeouts"
	"github.com/louisbranch/fieldschool/internal/storage"
	"go.etcd.io/bbolt"
)

const cacheBucket = "cache_entries"

// Store provides a BoltDB-backed cache store.
type Store struct {
	db *bbolt.DB
}

// record is the on-disk value for one cache key.
type record struct {
	Payload   []byte `json:"payload"`
	UpdatedAt int64  `json:"updated_at"`
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: timeouts.StoreOpen})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetCacheEntry loads a cache payload by key.
func (s *Store) GetCacheEntry(ctx context.Context, cacheKey string) (storage.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.CacheEntry{}, false, err
	}
	if s == nil || s.db == nil {
		return storage.CacheEntry{}, false, fmt.Errorf("storage is not configured")
	}
	cacheKey = strings.TrimSpace(cacheKey)
	if cacheKey == "" {
		return storage.CacheEntry{}, false, fmt.Errorf("cache key is required")
	}

	var (
		entry storage.CacheEntry
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}
		raw := bucket.Get([]byte(cacheKey))
		if raw == nil {
			return nil
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("unmarshal cache entry: %w", err)
		}
		entry = storage.CacheEntry{
			CacheKey:  cacheKey,
			Payload:   rec.Payload,
			UpdatedAt: unixMillisToTime(rec.UpdatedAt),
		}
		found = true
		return nil
	})
	if err != nil {
		return storage.CacheEntry{}, false, err
	}
	return entry, found, nil
}

// PutCacheEntry upserts a cache payload by key.
func (s *Store) PutCacheEntry(ctx context.Context, entry storage.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	entry, err := storage.ValidateEntry(entry, time.Now())
	if err != nil {
		return err
	}

	raw, err := json.Marshal(record{
		Payload:   entry.Payload,
		UpdatedAt: entry.UpdatedAt.UTC().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return fmt.Errorf("cache bucket is missing")
		}
		return bucket.Put([]byte(entry.CacheKey), raw)
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(cacheBucket)); err != nil {
			return fmt.Errorf("create cache bucket: %w", err)
		}
		return nil
	})
}

func unixMillisToTime(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

var _ storage.CacheStore = (*Store)(nil)
