// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// SERVER DEFAULTS
// =============================================================================

// DefaultHost is the listen address. Loopback by default: the proxy carries
// API keys in forwarded headers and must not be exposed on the network.
const DefaultHost = "127.0.0.1"

// DefaultPort is the listen port.
const DefaultPort = 8090

// DefaultUpstreamTimeout is the timeout for a single upstream API call.
// Generous because large-context completions can take minutes.
const DefaultUpstreamTimeout = 300 * time.Second

// DefaultServerWriteTimeout for the HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 1 * time.Minute

// MaxRequestBodySize is the maximum allowed request body (50MB).
const MaxRequestBodySize = 50 * 1024 * 1024

// MaxResponseSize is the maximum allowed upstream response body (50MB).
const MaxResponseSize = 50 * 1024 * 1024

// =============================================================================
// COMPRESSION DEFAULTS
// =============================================================================

// DefaultLevel is the default compression level (0=off .. 3=aggressive).
const DefaultLevel = 2

// DefaultMinChunkLines is the minimum block size, in lines, considered by
// the block deduplicator.
const DefaultMinChunkLines = 3

// DefaultMinChunkBytes is the minimum block size, in bytes, considered by
// the block deduplicator. Smaller blocks are not worth a reference marker.
const DefaultMinChunkBytes = 100

// TokenEstimateRatio is the approximate number of characters per token.
// Used as a fallback when the tokenizer is unavailable.
const TokenEstimateRatio = 4

// =============================================================================
// CACHE DEFAULTS
// =============================================================================

// DefaultCacheTTL is the time-to-live for cached responses.
const DefaultCacheTTL = 300 * time.Second

// DefaultCacheSweepInterval is the frequency of the background sweep that
// evicts expired entries. Expiry is checked at lookup time regardless; the
// sweep only bounds memory.
const DefaultCacheSweepInterval = 5 * time.Minute
