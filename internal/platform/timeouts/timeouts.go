// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values keeps the durations discoverable and prevents
// drift between the HTTP boundary and the storage layer.
package timeouts

import "time"

// StoreCall caps a single persistent-store call issued from the request
// path. A timeout degrades the response to a zero count instead of blocking.
const StoreCall = 2 * time.Second

// Flush caps the batched write of buffered counter values.
const Flush = 5 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
