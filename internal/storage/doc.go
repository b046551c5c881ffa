// Package storage defines the durable cache persistence used by cached
// queries.
//
// Cache data is always derived: every entry is the last good response for a
// key and can be rebuilt from the backend. Implementations live in
// subpackages (sqlite, bbolt, memory).
package storage
