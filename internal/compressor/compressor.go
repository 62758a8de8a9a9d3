// Package compressor implements the multi-pass prompt compression pipeline.
//
// DESIGN: Four passes, applied in a fixed, load-bearing order:
//  1. normalize.go: whitespace normalization        (level >= 1)
//  2. codeblock.go: fenced code compression         (level >= 2)
//  3. dedup.go:     cross-message block dedup       (level >= 2)
//  4. abbrev.go:    boilerplate phrase abbreviation (level >= 3)
//
// Code compression runs before deduplication so block hashes are computed
// over already comment-stripped text, maximizing the dedup hit rate.
// Abbreviation runs last so its substitutions cannot interfere with fence
// or marker detection in earlier passes.
//
// Compression is best-effort and must never block message delivery: a pass
// that trips over malformed input degrades to a no-op for that pass and
// the pipeline continues.
package compressor

import (
	"github.com/rs/zerolog/log"

	"github.com/aipproxy/aip-proxy/internal/config"
	"github.com/aipproxy/aip-proxy/internal/monitoring"
)

// Engine orchestrates the compression passes. It is stateless apart from
// the shared metrics collector and safe for concurrent use.
type Engine struct {
	level         Level
	minChunkLines int
	minChunkBytes int
	metrics       *monitoring.Collector
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches a shared metrics collector. Without it the engine
// still works, it just doesn't report.
func WithMetrics(m *monitoring.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithChunkSize overrides the deduplication block thresholds.
func WithChunkSize(minLines, minBytes int) Option {
	return func(e *Engine) {
		e.minChunkLines = minLines
		e.minChunkBytes = minBytes
	}
}

// New creates an Engine for the given level. The level is validated here
// even though the config layer already checks it: the engine must reject
// invalid levels when constructed directly.
func New(level Level, opts ...Option) (*Engine, error) {
	if err := level.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		level:         level,
		minChunkLines: config.DefaultMinChunkLines,
		minChunkBytes: config.DefaultMinChunkBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Level returns the configured compression level.
func (e *Engine) Level() Level { return e.level }

// Compress applies the passes enabled at the engine's level to every
// message and returns the compressed copy plus a savings report. The input
// list is never modified; message order is always preserved. Level 0 is the
// identity transform with an all-zero report.
func (e *Engine) Compress(msgs []Message) ([]Message, SavingsReport) {
	original := 0
	for _, m := range msgs {
		original += len(m.Content)
	}

	if e.level == LevelOff {
		e.record(original, original)
		return msgs, SavingsReport{}
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)

	for i := range out {
		out[i].Content = runPass("normalize", out[i].Content, NormalizeWhitespace)
	}

	if e.level >= LevelBalanced {
		for i := range out {
			out[i].Content = runPass("code", out[i].Content, CompressCodeBlocks)
		}
		out = e.dedup(out)
	}

	if e.level >= LevelAggressive {
		for i := range out {
			out[i].Content = runPass("abbrev", out[i].Content, AbbreviatePatterns)
		}
	}

	compressed := 0
	for _, m := range out {
		compressed += len(m.Content)
	}
	e.record(original, compressed)
	return out, makeReport(original, compressed)
}

// CompressText applies the per-message passes to a single string. Used for
// content that is not part of a message list (no deduplication).
func (e *Engine) CompressText(text string) string {
	if e.level == LevelOff {
		return text
	}
	text = runPass("normalize", text, NormalizeWhitespace)
	if e.level >= LevelBalanced {
		text = runPass("code", text, CompressCodeBlocks)
	}
	if e.level >= LevelAggressive {
		text = runPass("abbrev", text, AbbreviatePatterns)
	}
	return text
}

func (e *Engine) record(original, compressed int) {
	if e.metrics != nil {
		e.metrics.RecordCompression(original, compressed)
	}
}

// dedup runs the cross-message deduplication pass with panic recovery.
func (e *Engine) dedup(msgs []Message) (out []Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("dedup pass failed, skipping")
			out = msgs
		}
	}()
	out, _, _ = DeduplicateBlocks(msgs, e.minChunkLines, e.minChunkBytes)
	return out
}

// runPass executes one per-message pass, degrading to a no-op if the pass
// fails on malformed input.
func runPass(name, text string, pass func(string) PassResult) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("pass", name).Interface("panic", r).Msg("pass failed, skipping")
			out = text
		}
	}()
	res := pass(text)
	if res.CharsRemoved < 0 {
		// Non-expansion invariant: an expanding pass result is discarded.
		return text
	}
	return res.Text
}
