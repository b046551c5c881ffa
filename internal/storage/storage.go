package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/fieldschool/internal/platform/cachedquery"
)

// CacheEntry stores one serialized query result.
type CacheEntry struct {
	CacheKey  string
	Payload   []byte
	UpdatedAt time.Time
}

// CacheStore persists cache entries by key.
type CacheStore interface {
	Close() error
	GetCacheEntry(ctx context.Context, cacheKey string) (CacheEntry, bool, error)
	PutCacheEntry(ctx context.Context, entry CacheEntry) error
}

// ValidateEntry normalizes entry for writing and reports missing fields.
func ValidateEntry(entry CacheEntry, now time.Time) (CacheEntry, error) {
	entry.CacheKey = strings.TrimSpace(entry.CacheKey)
	if entry.CacheKey == "" {
		return CacheEntry{}, fmt.Errorf("cache key is required")
	}
	// Empty protobuf messages encode to zero bytes.
	if entry.Payload == nil {
		entry.Payload = []byte{}
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now.UTC()
	}
	return entry, nil
}

// KeyValueStore exposes a CacheStore through the byte-level contract used by
// cached queries.
type KeyValueStore struct {
	store CacheStore
	clock func() time.Time
}

// KeyValue adapts store for cachedquery.
func KeyValue(store CacheStore) *KeyValueStore {
	return &KeyValueStore{store: store, clock: time.Now}
}

// Get returns the payload stored under key.
func (s *KeyValueStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.store == nil {
		return nil, false, fmt.Errorf("storage is not configured")
	}
	entry, ok, err := s.store.GetCacheEntry(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.Payload, true, nil
}

// Set overwrites the payload stored under key.
func (s *KeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.store.PutCacheEntry(ctx, CacheEntry{
		CacheKey:  key,
		Payload:   value,
		UpdatedAt: s.clock().UTC(),
	})
}

var _ cachedquery.Store = (*KeyValueStore)(nil)
