// Package cache implements the response cache with request coalescing.
//
// DESIGN: Two structures behind one mutex-free fast path:
//   - entries:  TTL store (patrickmn/go-cache) holding completed responses.
//     Expiry is passive - checked at lookup - with a background janitor
//     sweep to bound memory.
//   - inflight: fingerprint -> in-flight call. Insert-if-absent under a
//     single mutex is the crux of the coalescing invariant: exactly one
//     caller wins the race and performs the upstream call; everyone else
//     subscribes and waits for that one result.
//
// Failures are propagated to every subscriber and never cached, so a
// failed upstream call is retried by the next request.
package cache

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aipproxy/aip-proxy/internal/config"
	"github.com/aipproxy/aip-proxy/internal/monitoring"
)

// Response is a cached upstream response. Instances are shared between
// subscribers and cache hits; treat them as read-only.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ComputeFunc performs the upstream call on a cache miss.
type ComputeFunc func(ctx context.Context) (*Response, error)

// inflightCall is one upstream call in progress. done is closed when resp
// and err are final; subscribers block on it.
type inflightCall struct {
	done chan struct{}
	resp *Response
	err  error
}

// ResponseCache deduplicates identical recent requests. When disabled, it
// degrades to calling compute directly with no lookup, storage, or
// coalescing.
type ResponseCache struct {
	enabled bool
	ttl     time.Duration
	entries *gocache.Cache
	metrics *monitoring.Collector

	mu       sync.Mutex
	inflight map[Fingerprint]*inflightCall
}

// New creates a ResponseCache. ttl must be positive when enabled; the
// config layer validates this too, but the cache rejects bad TTLs when
// constructed directly.
func New(enabled bool, ttl time.Duration, metrics *monitoring.Collector) (*ResponseCache, error) {
	if enabled && ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	c := &ResponseCache{
		enabled:  enabled,
		ttl:      ttl,
		metrics:  metrics,
		inflight: make(map[Fingerprint]*inflightCall),
	}
	if enabled {
		c.entries = gocache.New(ttl, config.DefaultCacheSweepInterval)
	}
	return c, nil
}

// Enabled reports whether caching is active.
func (c *ResponseCache) Enabled() bool { return c.enabled }

// Len returns the number of live entries (including not-yet-swept expired
// ones, which go-cache counts until the janitor runs).
func (c *ResponseCache) Len() int {
	if !c.enabled {
		return 0
	}
	return c.entries.ItemCount()
}

// GetOrCompute returns the cached response for fp, or arranges for compute
// to run exactly once across all concurrent callers with the same
// fingerprint.
//
// The winning caller runs compute detached from its own request context:
// a client that disconnects must not cancel an upstream call other
// subscribers are waiting on. Subscribers honor their own ctx - a
// cancelled subscriber gives up waiting without disturbing the call.
func (c *ResponseCache) GetOrCompute(ctx context.Context, fp Fingerprint, compute ComputeFunc) (*Response, error) {
	if !c.enabled {
		return compute(ctx)
	}

	if resp, ok := c.lookup(fp); ok {
		return resp, nil
	}

	c.mu.Lock()
	// Re-check under the lock: a concurrent owner may have stored the
	// entry between our lookup and acquiring the mutex.
	if v, ok := c.entries.Get(string(fp)); ok {
		c.mu.Unlock()
		c.recordHit()
		return v.(*Response), nil
	}
	if call, ok := c.inflight[fp]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.resp, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[fp] = call
	c.mu.Unlock()

	c.recordMiss()
	call.resp, call.err = compute(context.WithoutCancel(ctx))

	// Only successful, complete responses are cached. Upstream failures
	// and error statuses must be retried by the next request.
	if call.err == nil && call.resp != nil && call.resp.StatusCode == http.StatusOK {
		c.entries.Set(string(fp), call.resp, c.ttl)
	}

	c.mu.Lock()
	delete(c.inflight, fp)
	c.mu.Unlock()
	close(call.done)

	return call.resp, call.err
}

// lookup checks the entry store. go-cache treats entries past their expiry
// as absent, satisfying the TTL invariant without an eager sweep.
func (c *ResponseCache) lookup(fp Fingerprint) (*Response, bool) {
	v, ok := c.entries.Get(string(fp))
	if !ok {
		return nil, false
	}
	c.recordHit()
	return v.(*Response), true
}

// Flush drops every cached entry. Used by tests.
func (c *ResponseCache) Flush() {
	if c.enabled {
		c.entries.Flush()
	}
}

func (c *ResponseCache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *ResponseCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}
