// Package memory provides a process-local cache store for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/fieldschool/internal/storage"
)

// Store keeps cache entries in a map. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]storage.CacheEntry
	closed  bool
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]storage.CacheEntry)}
}

// Close marks the store closed; later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// GetCacheEntry returns a copy of the entry stored under cacheKey.
func (s *Store) GetCacheEntry(ctx context.Context, cacheKey string) (storage.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.CacheEntry{}, false, err
	}
	cacheKey = strings.TrimSpace(cacheKey)
	if cacheKey == "" {
		return storage.CacheEntry{}, false, fmt.Errorf("cache key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.CacheEntry{}, false, fmt.Errorf("storage is closed")
	}
	entry, ok := s.entries[cacheKey]
	if !ok {
		return storage.CacheEntry{}, false, nil
	}
	entry.Payload = append([]byte(nil), entry.Payload...)
	return entry, true, nil
}

// PutCacheEntry stores a copy of entry, replacing any prior entry.
func (s *Store) PutCacheEntry(ctx context.Context, entry storage.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry, err := storage.ValidateEntry(entry, time.Now())
	if err != nil {
		return err
	}
	entry.Payload = append([]byte{}, entry.Payload...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("storage is closed")
	}
	s.entries[entry.CacheKey] = entry
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ storage.CacheStore = (*Store)(nil)
