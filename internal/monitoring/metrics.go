// Package monitoring provides process-wide counters for the proxy.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - original/compressed chars: cumulative compression savings
//   - calls:                     compression engine invocations
//   - cache_hits/misses:         response cache performance
//   - requests/upstream_errors:  proxied request counts
//
// Counters are initialized to zero at process start, incremented from many
// concurrent request handlers via atomics, and reset only on restart. They
// are not persisted. For production, export these to Prometheus or similar.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Collector collects operational metrics. The zero value is not usable;
// create one with NewCollector and share it across components.
type Collector struct {
	startedAt time.Time

	// Compression counters
	originalChars   atomic.Int64
	compressedChars atomic.Int64
	calls           atomic.Int64

	// Token estimates (derived from text at record time)
	originalTokens   atomic.Int64
	compressedTokens atomic.Int64

	// Cache counters
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	// Request counters
	requests       atomic.Int64
	chatRequests   atomic.Int64
	streamed       atomic.Int64
	upstreamErrors atomic.Int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{startedAt: time.Now()}
}

// RecordCompression records one compression engine invocation.
func (c *Collector) RecordCompression(originalChars, compressedChars int) {
	c.originalChars.Add(int64(originalChars))
	c.compressedChars.Add(int64(compressedChars))
	c.calls.Add(1)
}

// RecordTokenEstimates records estimated token counts for one request.
func (c *Collector) RecordTokenEstimates(original, compressed int) {
	c.originalTokens.Add(int64(original))
	c.compressedTokens.Add(int64(compressed))
}

// RecordCacheHit records a response served from cache.
func (c *Collector) RecordCacheHit() { c.cacheHits.Add(1) }

// RecordCacheMiss records a response that required an upstream call.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Add(1) }

// RecordRequest records a proxied request.
func (c *Collector) RecordRequest(chat, streamed bool) {
	c.requests.Add(1)
	if chat {
		c.chatRequests.Add(1)
	}
	if streamed {
		c.streamed.Add(1)
	}
}

// RecordUpstreamError records a failed upstream call.
func (c *Collector) RecordUpstreamError() { c.upstreamErrors.Add(1) }

// StartedAt returns when the collector was created.
func (c *Collector) StartedAt() time.Time { return c.startedAt }

// Stats is a point-in-time snapshot of all counters.
type Stats struct {
	UptimeSeconds int64 `json:"uptime_seconds"`

	OriginalChars   int64   `json:"original_chars"`
	CompressedChars int64   `json:"compressed_chars"`
	SavedChars      int64   `json:"saved_chars"`
	SavingsPct      float64 `json:"savings_pct"`
	Calls           int64   `json:"calls"`

	OriginalTokens   int64 `json:"original_tokens"`
	CompressedTokens int64 `json:"compressed_tokens"`
	TokensSaved      int64 `json:"tokens_saved"`

	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	Requests       int64 `json:"requests"`
	ChatRequests   int64 `json:"chat_requests"`
	Streamed       int64 `json:"streamed"`
	UpstreamErrors int64 `json:"upstream_errors"`
}

// Snapshot returns the current counter values with derived percentages.
func (c *Collector) Snapshot() Stats {
	s := Stats{
		UptimeSeconds:    int64(time.Since(c.startedAt).Seconds()),
		OriginalChars:    c.originalChars.Load(),
		CompressedChars:  c.compressedChars.Load(),
		Calls:            c.calls.Load(),
		OriginalTokens:   c.originalTokens.Load(),
		CompressedTokens: c.compressedTokens.Load(),
		CacheHits:        c.cacheHits.Load(),
		CacheMisses:      c.cacheMisses.Load(),
		Requests:         c.requests.Load(),
		ChatRequests:     c.chatRequests.Load(),
		Streamed:         c.streamed.Load(),
		UpstreamErrors:   c.upstreamErrors.Load(),
	}
	s.SavedChars = s.OriginalChars - s.CompressedChars
	if s.OriginalChars > 0 {
		s.SavingsPct = float64(s.SavedChars) / float64(s.OriginalChars) * 100
	}
	s.TokensSaved = s.OriginalTokens - s.CompressedTokens
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total) * 100
	}
	return s
}
