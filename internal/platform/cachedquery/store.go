package cachedquery

import "context"

// Store is the durable key-value storage a Query reads and writes.
//
// Get returns (nil, false, nil) when the key has no entry. Set overwrites any
// prior entry for the key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
