// HTTP request handling for the compression proxy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/aipproxy/aip-proxy/internal/cache"
	"github.com/aipproxy/aip-proxy/internal/compressor"
	"github.com/aipproxy/aip-proxy/internal/config"
	"github.com/aipproxy/aip-proxy/internal/monitoring"
	"github.com/aipproxy/aip-proxy/internal/utils"
)

// hopHeaders are stripped in both directions; they describe the connection,
// not the payload, and must not be forwarded by a proxy.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// responseSkipHeaders are additionally dropped from upstream responses:
// the proxy re-frames the body, so stale lengths and encodings would
// corrupt the reply.
var responseSkipHeaders = []string{
	"Content-Length",
	"Content-Encoding",
	"Transfer-Encoding",
}

// writeError writes a JSON error response.
func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"message": msg, "type": "proxy_error"},
	})
}

// getRequestID gets or generates a request ID for log correlation.
func getRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.New().String()
}

// isChatRequest reports whether this is a chat-completion call whose body
// the proxy should compress.
func isChatRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/chat/completions")
}

// isStreamingBody reports whether the request asks for a streamed response.
func isStreamingBody(body []byte) bool {
	if !bytes.Contains(body, []byte(`"stream"`)) {
		return false
	}
	return gjson.GetBytes(body, "stream").Bool()
}

// isCacheable reports whether a chat request may be served from cache.
// Only deterministic requests qualify: a sampling temperature above zero
// (or absent, which defaults to 1) makes responses non-repeatable, and
// serving a cached one would change observable behavior.
func isCacheable(body []byte) bool {
	temp := gjson.GetBytes(body, "temperature")
	return temp.Exists() && temp.Num == 0
}

// handleProxy forwards requests to the target API with token compression.
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r)

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.writeError(w, "failed to read request", http.StatusBadRequest)
		return
	}

	chat := isChatRequest(r)
	streaming := false
	forwardBody := body

	if chat && len(body) > 0 && gjson.ValidBytes(body) {
		streaming = isStreamingBody(body)

		var report compressor.SavingsReport
		forwardBody, report = g.compressChat(body)
		if report.OriginalChars > 0 {
			log.Debug().
				Str("request_id", requestID).
				Int("original_chars", report.OriginalChars).
				Int("compressed_chars", report.CompressedChars).
				Float64("savings_pct", report.SavingsPct).
				Msg("compressed request")
		}
	}
	g.metrics.RecordRequest(chat, streaming)

	switch {
	case streaming:
		g.handleStreaming(w, r, forwardBody, requestID)
	case chat && gjson.ValidBytes(body):
		g.handleChat(w, r, forwardBody, requestID, start)
	default:
		g.handlePassthrough(w, r, forwardBody, requestID)
	}
}

// compressChat runs the compression pipeline over a chat body and records
// token estimates for the stats endpoint.
func (g *Gateway) compressChat(body []byte) ([]byte, compressor.SavingsReport) {
	forwardBody, report := g.compressBody(body)
	if report.SavedChars > 0 {
		g.metrics.RecordTokenEstimates(
			monitoring.EstimateTokens(string(body)),
			monitoring.EstimateTokens(string(forwardBody)),
		)
	}
	return forwardBody, report
}

// handleChat serves a non-streaming chat request, consulting the
// coalescing cache when the request qualifies.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request, forwardBody []byte, requestID string, start time.Time) {
	compute := func(ctx context.Context) (*cache.Response, error) {
		return g.forward(ctx, r, forwardBody)
	}

	var resp *cache.Response
	var err error
	if g.cache.Enabled() && isCacheable(forwardBody) {
		fp := cache.Compute(cache.FingerprintInput{
			Level:   int(g.engine.Level()),
			Model:   gjson.GetBytes(forwardBody, "model").String(),
			Path:    r.URL.Path,
			Payload: forwardBody,
		})
		resp, err = g.cache.GetOrCompute(r.Context(), fp, compute)
	} else {
		resp, err = compute(r.Context())
	}

	if err != nil {
		g.metrics.RecordUpstreamError()
		log.Error().Err(err).Str("request_id", requestID).Msg("upstream request failed")
		g.writeError(w, "upstream request failed", http.StatusBadGateway)
		return
	}

	g.writeResponse(w, resp)
	log.Info().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("chat request served")
}

// handlePassthrough forwards a non-chat request unchanged.
func (g *Gateway) handlePassthrough(w http.ResponseWriter, r *http.Request, body []byte, requestID string) {
	resp, err := g.forward(r.Context(), r, body)
	if err != nil {
		g.metrics.RecordUpstreamError()
		log.Debug().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("passthrough failed")
		g.writeError(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	g.writeResponse(w, resp)
}

// forward performs one upstream call and buffers the response. The caller
// owns the context: the coalescing cache passes a detached one so client
// disconnects don't cancel shared calls.
func (g *Gateway) forward(ctx context.Context, r *http.Request, body []byte) (*cache.Response, error) {
	targetURL := g.target.String() + r.URL.Path
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	copyRequestHeaders(req.Header, r.Header)

	log.Debug().
		Str("url", targetURL).
		Str("authorization", utils.MaskKey(r.Header.Get("Authorization"))).
		Str("x-api-key", utils.MaskKey(r.Header.Get("x-api-key"))).
		Msg("forwarding request")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	return &cache.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}

// handleStreaming forwards a streaming request and relays response bytes
// as they arrive. Streamed responses are never cached.
func (g *Gateway) handleStreaming(w http.ResponseWriter, r *http.Request, body []byte, requestID string) {
	targetURL := g.target.String() + r.URL.Path
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, bytes.NewReader(body))
	if err != nil {
		g.writeError(w, "failed to build upstream request", http.StatusInternalServerError)
		return
	}
	copyRequestHeaders(req.Header, r.Header)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.metrics.RecordUpstreamError()
		log.Error().Err(err).Str("request_id", requestID).Msg("upstream stream failed")
		g.writeError(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			return
		}
	}
}

// writeResponse relays a buffered upstream response to the client.
func (g *Gateway) writeResponse(w http.ResponseWriter, resp *cache.Response) {
	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// copyRequestHeaders copies client headers to the upstream request, minus
// hop-by-hop headers. Host and Content-Length are set by the transport.
func copyRequestHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
	dst.Del("Host")
	dst.Del("Content-Length")
}

// copyResponseHeaders copies upstream headers to the client response.
func copyResponseHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
	for _, h := range responseSkipHeaders {
		dst.Del(h)
	}
}

// isLoopback reports whether the remote address is local. Operational
// endpoints are restricted to localhost.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
