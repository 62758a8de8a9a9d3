// Package gateway implements the forwarding proxy that sits between an API
// client (an IDE or tool issuing chat-completion requests) and the upstream
// LLM API.
//
// DESIGN: Request flow:
//   - handleProxy():     Entry point; forwards every method/path upstream
//   - compressBody():    Locates message content and runs the compressor
//   - handleChat():      Cache lookup + coalesced forward for chat requests
//   - handleStreaming(): Relays SSE responses as they arrive (never cached)
//
// Also includes the health check and stats endpoints.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aipproxy/aip-proxy/internal/cache"
	"github.com/aipproxy/aip-proxy/internal/compressor"
	"github.com/aipproxy/aip-proxy/internal/config"
	"github.com/aipproxy/aip-proxy/internal/monitoring"
)

// Gateway is the proxy orchestrator. One instance serves all requests.
type Gateway struct {
	config     *config.Config
	target     *url.URL
	engine     *compressor.Engine
	cache      *cache.ResponseCache
	metrics    *monitoring.Collector
	httpClient *http.Client
	server     *http.Server
	startedAt  time.Time
}

// New creates a Gateway from a validated configuration.
func New(cfg *config.Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	target, err := url.Parse(strings.TrimSuffix(cfg.Target, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}

	metrics := monitoring.NewCollector()

	engine, err := compressor.New(
		compressor.Level(cfg.Compression.Level),
		compressor.WithMetrics(metrics),
		compressor.WithChunkSize(cfg.Compression.MinChunkLines, cfg.Compression.MinChunkBytes),
	)
	if err != nil {
		return nil, err
	}

	respCache, err := cache.New(cfg.Cache.Enabled, cfg.Cache.TTL(), metrics)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		config:  cfg,
		target:  target,
		engine:  engine,
		cache:   respCache,
		metrics: metrics,
		httpClient: &http.Client{
			Timeout: cfg.Server.UpstreamTimeout,
		},
		startedAt: time.Now(),
	}, nil
}

// Metrics returns the shared metrics collector.
func (g *Gateway) Metrics() *monitoring.Collector { return g.metrics }

// Handler returns the gateway's HTTP handler. Exposed for tests.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/stats", g.handleStats)
	mux.HandleFunc("/", g.handleProxy)
	return mux
}

// Start blocks on ListenAndServe until the server stops.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.server = &http.Server{
		Addr:         addr,
		Handler:      g.Handler(),
		ReadTimeout:  config.DefaultServerReadTimeout,
		WriteTimeout: config.DefaultServerWriteTimeout,
	}
	log.Info().
		Str("addr", addr).
		Str("target", g.target.String()).
		Int("level", int(g.engine.Level())).
		Bool("cache", g.cache.Enabled()).
		Msg("gateway listening")
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
