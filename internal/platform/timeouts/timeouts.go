// Package timeouts defines shared timeout defaults.
package timeouts

import "time"

// BackendRequest caps a single producer call to the managed backend. Cached
// queries impose no timeout of their own, so producers carry this one.
const BackendRequest = 10 * time.Second

// StoreOpen limits how long opening the cache store may wait on a file lock.
const StoreOpen = time.Second

// Shutdown limits graceful shutdown of servers and telemetry exporters.
const Shutdown = 5 * time.Second
