// Package config defines the proxy configuration surface.
//
// DESIGN: Configuration is resolved in layers, later layers winning:
//  1. Defaults (defaults.go)
//  2. Optional YAML config file, with ${VAR} environment expansion
//  3. CLI flags (applied by cmd/aip-proxy)
//
// The resolved Config is validated once at startup and treated as immutable
// for the process lifetime.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full proxy configuration.
type Config struct {
	// Target is the upstream API base URL (e.g. https://api.openai.com/v1).
	Target string `yaml:"target"`

	Server      ServerConfig      `yaml:"server"`
	Compression CompressionConfig `yaml:"compression"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// CompressionConfig holds compression pipeline settings.
type CompressionConfig struct {
	// Level selects how aggressive compression is:
	// 0=off, 1=light, 2=balanced, 3=aggressive.
	Level int `yaml:"level"`

	// MinChunkLines is the minimum block size, in lines, for deduplication.
	MinChunkLines int `yaml:"min_chunk_lines"`

	// MinChunkBytes is the minimum block size, in bytes, for deduplication.
	MinChunkBytes int `yaml:"min_chunk_bytes"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Default returns a Config populated with defaults. Target is left empty
// and must be supplied by the config file or the --target flag.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			UpstreamTimeout: DefaultUpstreamTimeout,
		},
		Compression: CompressionConfig{
			Level:         DefaultLevel,
			MinChunkLines: DefaultMinChunkLines,
			MinChunkBytes: DefaultMinChunkBytes,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: int(DefaultCacheTTL / time.Second),
		},
	}
}

// LoadFile reads a YAML config file over the defaults. ${VAR} references in
// the file are expanded from the environment before parsing, so API keys and
// hosts can live in the environment rather than on disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration. Invalid configuration is fatal at
// startup: the core packages also reject bad levels and TTLs defensively,
// but errors should surface here before any request is served.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target URL is required")
	}
	u, err := url.Parse(c.Target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid target URL %q", c.Target)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.Compression.Level < 0 || c.Compression.Level > 3 {
		return fmt.Errorf("compression level must be 0-3, got %d", c.Compression.Level)
	}
	if c.Compression.MinChunkLines < 1 {
		return fmt.Errorf("min_chunk_lines must be at least 1")
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	return nil
}
