// Package server composes the dashboard hub runtime.
//
// It opens the durable cache store, builds one cached query per dashboard
// feature over the backend client, and either prints a single dashboard view
// or keeps the view fresh while reporting gRPC health.
package server
