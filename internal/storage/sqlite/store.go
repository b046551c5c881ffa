package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/fieldschool/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/fieldschool/internal/storage"
	"github.com/louisbranch/fieldschool/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for cache entries.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a cache SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetCacheEntry loads a cache payload by key.
func (s *Store) GetCacheEntry(ctx context.Context, cacheKey string) (storage.CacheEntry, bool, error) {
	if s == nil || s.sqlDB == nil {
		return storage.CacheEntry{}, false, fmt.Errorf("storage is not configured")
	}
	cacheKey = strings.TrimSpace(cacheKey)
	if cacheKey == "" {
		return storage.CacheEntry{}, false, fmt.Errorf("cache key is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT cache_key, payload, updated_at FROM cache_entries WHERE cache_key = ?`,
		cacheKey,
	)

	var entry storage.CacheEntry
	var updatedAt int64
	if err := row.Scan(&entry.CacheKey, &entry.Payload, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CacheEntry{}, false, nil
		}
		return storage.CacheEntry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	if entry.Payload == nil {
		entry.Payload = []byte{}
	}
	entry.UpdatedAt = unixMillisToTime(updatedAt)
	return entry, true, nil
}

// PutCacheEntry upserts a cache payload by key.
func (s *Store) PutCacheEntry(ctx context.Context, entry storage.CacheEntry) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	entry, err := storage.ValidateEntry(entry, time.Now())
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cache_entries (cache_key, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		    payload = excluded.payload,
		    updated_at = excluded.updated_at`,
		entry.CacheKey,
		entry.Payload,
		entry.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

func unixMillisToTime(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

var _ storage.CacheStore = (*Store)(nil)
