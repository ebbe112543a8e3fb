// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

// Package main is the entry point for the SentinelMap server.
//
// SentinelMap visualizes honeypot and firewall activity from a DuckDB event
// store as live attack maps. The server runs two WebSocket feeds - honeypot
// and firewall - each backed by a shared poller that tails the store,
// deduplicates events, and fans them out to every connected map client, plus
// a small REST API for dashboard statistics.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered load (defaults, config.yaml, env vars)
//  2. Logging: zerolog initialized from the logging config
//  3. Event store: DuckDB opened read/write, wrapped in a circuit breaker
//  4. Feeds: honeypot and firewall engines built over the shared store
//  5. Authentication: JWT + bcrypt admin credentials when configured
//  6. Supervisor tree: feeds and the HTTP server run under suture
//
// # Configuration
//
// Environment variables override config.yaml, which overrides defaults. The
// important ones:
//   - HTTP_PORT: listen port (default 8472)
//   - DUCKDB_PATH: event store path (default /data/sentinelmap.duckdb)
//   - HONEYPOT_SENSORS: comma-separated sensor tags for the honeypot feed
//   - JWT_SECRET: 32+ character secret; enables authentication
//   - ADMIN_USERNAME / ADMIN_PASSWORD_HASH: bcrypt login credentials
//   - ENVIRONMENT=production: makes the credentials mandatory
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the HTTP server drains
// in-flight requests, feed hubs close their client connections, and the
// store closes last.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmercer/sentinelmap/internal/api"
	"github.com/jmercer/sentinelmap/internal/auth"
	"github.com/jmercer/sentinelmap/internal/config"
	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/feed"
	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not available yet, the default logger has to do.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting SentinelMap")

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Strs("honeypot_sensors", cfg.Feeds.HoneypotSensors).
		Str("firewall_sensor", cfg.Feeds.FirewallSensor).
		Dur("poll_interval", cfg.Feeds.PollInterval).
		Msg("Configuration loaded")

	duck, err := eventstore.OpenDuckDB(&cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event store")
	}
	defer func() {
		if err := duck.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()
	store := eventstore.NewResilient(duck)
	logging.Info().Msg("Event store opened")

	if cfg.Server.Latitude != 0.0 || cfg.Server.Longitude != 0.0 {
		logging.Info().
			Float64("latitude", cfg.Server.Latitude).
			Float64("longitude", cfg.Server.Longitude).
			Msg("Facility location configured as map arc destination")
	} else {
		logging.Warn().Msg("Facility location not configured, attack arcs will terminate at 0,0")
	}

	// Each feed owns its own hub, dedup cache, and poller over the shared store.
	feeds := map[string]*feed.Feed{
		"honeypot": feed.New(feed.HoneypotKind(&cfg.Feeds), store, cfg),
		"firewall": feed.New(feed.FirewallKind(&cfg.Feeds), store, cfg),
	}

	// Auth is optional in development: without a JWT secret every endpoint is
	// open, which is only acceptable on an isolated network.
	var jwtManager *auth.JWTManager
	var authenticator *auth.Authenticator
	if cfg.Security.JWTSecret != "" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		authenticator, err = auth.NewAuthenticator(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize authenticator")
		}
		logging.Info().Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("Authentication is DISABLED (no JWT_SECRET configured)")
		logging.Warn().Msg("All endpoints are publicly accessible; use only on isolated networks")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}

	handler := api.NewHandler(cfg, store, feeds, jwtManager, authenticator)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	for name, f := range feeds {
		tree.AddFeedService(f)
		logging.Info().Str("feed", name).Msg("Feed added to supervisor tree")
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("SentinelMap stopped gracefully")
}
