// Package cachedquery serves the freshest obtainable value for a key,
// degrading to the last value persisted in a durable store when the producer
// fails.
//
// A Query runs one attempt per Activate or Refresh call. A successful attempt
// overwrites the stored entry for its key; a failed attempt falls back to that
// entry and marks the snapshot offline. Producer and storage errors never
// reach the consumer: the Offline flag is the only failure signal.
//
// By default attempts for the same key apply in the order they resolve, so a
// slow automatic load can overwrite a newer refresh. Options.Fenced discards
// results from superseded attempts instead.
package cachedquery
