// aip-proxy is a local forwarding proxy that sits between an API client
// and an OpenAI-compatible LLM endpoint, compressing chat-completion
// request bodies before they leave the machine and caching deterministic
// responses for a short TTL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/aipproxy/aip-proxy/internal/config"
	"github.com/aipproxy/aip-proxy/internal/gateway"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("aip-proxy", pflag.ContinueOnError)
	target := flags.StringP("target", "t", "", "upstream API base URL (required unless set in config file)")
	host := flags.String("host", config.DefaultHost, "address to listen on")
	port := flags.IntP("port", "p", config.DefaultPort, "port to listen on")
	level := flags.IntP("level", "l", config.DefaultLevel, "compression level 0-3")
	noCache := flags.Bool("no-cache", false, "disable the response cache")
	cacheTTL := flags.Int("cache-ttl", int(config.DefaultCacheTTL.Seconds()), "cache TTL in seconds")
	configPath := flags.String("config", "", "path to YAML config file")
	debug := flags.Bool("debug", false, "enable debug logging")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	// .env is optional; missing file is not an error.
	_ = godotenv.Load()

	setupLogging(*debug)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	// Flags the user actually passed win over file values.
	if flags.Changed("target") || cfg.Target == "" {
		cfg.Target = *target
	}
	if flags.Changed("host") {
		cfg.Server.Host = *host
	}
	if flags.Changed("port") {
		cfg.Server.Port = *port
	}
	if flags.Changed("level") {
		cfg.Compression.Level = *level
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !*noCache
	}
	if flags.Changed("cache-ttl") {
		cfg.Cache.TTLSeconds = *cacheTTL
	}
	if flags.Changed("debug") {
		cfg.Logging.Debug = *debug
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return err
	}

	printBanner(cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- gw.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return gw.Shutdown(ctx)
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

func printBanner(cfg *config.Config) {
	fmt.Printf("aip-proxy\n")
	fmt.Printf("  listen:  http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  target:  %s\n", cfg.Target)
	fmt.Printf("  level:   %d\n", cfg.Compression.Level)
	if cfg.Cache.Enabled {
		fmt.Printf("  cache:   on (ttl %ds)\n", cfg.Cache.TTLSeconds)
	} else {
		fmt.Printf("  cache:   off\n")
	}
	fmt.Printf("\nPoint your client's base URL at the listen address.\n\n")
}
