// Package sqlite provides the cache store backed by SQLite.
//
// The store only holds derived cache state that can be rebuilt from the
// backend.
package sqlite
