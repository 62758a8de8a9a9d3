package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aipproxy/aip-proxy/internal/monitoring"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Target        string `json:"target"`
	Level         int    `json:"compression_level"`
	CacheEnabled  bool   `json:"cache_enabled"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StatsResponse is the /stats payload: the metrics snapshot plus the
// current cache entry count.
type StatsResponse struct {
	monitoring.Stats
	CacheEntries int `json:"cache_entries"`
}

// handleHealth serves the liveness check.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Target:        g.target.String(),
		Level:         int(g.engine.Level()),
		CacheEnabled:  g.cache.Enabled(),
		UptimeSeconds: int64(time.Since(g.startedAt).Seconds()),
	})
}

// handleStats serves runtime counters. Loopback only: the endpoint leaks
// usage patterns and is meant for the operator's curl, not the network.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:        g.metrics.Snapshot(),
		CacheEntries: g.cache.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
