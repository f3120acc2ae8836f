// Package timeouts defines shared timeout constants used across the intake
// pipeline and server. Centralizing these values prevents drift between
// call sites and makes the durations discoverable.
package timeouts

import "time"

// Moderation caps the wait time for one content classification call.
const Moderation = 10 * time.Second

// Inference caps the wait time for one text generation call.
const Inference = 30 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
