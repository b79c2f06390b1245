// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package main is the entry point for the Echotrace server.
//
// Echotrace tracks engagement on social posts: it polls a social-data
// provider on an adaptive cadence, snapshots per-post engagement
// counters, records each amplifying identity exactly once, and derives
// insight bundles from the accumulated history.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config file, and
//     environment (Koanf v2)
//  2. Snapshot store: DuckDB database holding tracked posts, accounts,
//     snapshots, and amplifier events
//  3. Dedup index: BadgerDB (or in-memory) identity index, optionally
//     warmed from stored history
//  4. Provider client: rate-limited HTTP client, optionally wrapped in
//     a circuit breaker
//  5. Monitor: the adaptive polling loop
//  6. Supervisor tree: suture-supervised monitoring and telemetry layers
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables (ECHOTRACE_*), config file
// (config.yaml), built-in defaults.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the monitor
// finishes its in-flight runs, the metrics listener drains, and the
// store and index are closed.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echotrace/echotrace/internal/config"
	"github.com/echotrace/echotrace/internal/dedup"
	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/monitor"
	"github.com/echotrace/echotrace/internal/provider"
	"github.com/echotrace/echotrace/internal/store"
	"github.com/echotrace/echotrace/internal/supervisor"
	"github.com/echotrace/echotrace/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("provider", cfg.Provider.BaseURL).
		Str("db_path", cfg.Database.Path).
		Dur("tick", cfg.Monitor.TickInterval).
		Msg("Starting Echotrace")

	db, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize snapshot store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing snapshot store")
		}
	}()

	index, err := newDedupIndex(&cfg.Dedup)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open dedup index")
	}
	defer func() {
		if err := index.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dedup index")
		}
	}()

	if cfg.Dedup.WarmOnStart {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		loaded, err := dedup.Warm(warmCtx, index, db)
		warmCancel()
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to warm dedup index")
		}
		logging.Info().Int("identities", loaded).Msg("Dedup index warmed from store")
	}

	var client provider.Client = provider.NewHTTPClient(&cfg.Provider)
	if cfg.Provider.Breaker {
		client = provider.NewBreakerClient(client)
		logging.Info().Msg("Provider circuit breaker enabled")
	}

	mon := monitor.New(db, client, index, &cfg.Monitor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMonitoringService(services.NewMonitorService(mon))

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		tree.AddTelemetryService(services.NewHTTPServerService("metrics-server", server, 10*time.Second))
		logging.Info().Str("listen", cfg.Metrics.Listen).Msg("Metrics endpoint enabled")
	}

	errCh := tree.ServeBackground(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("Supervisor tree exited unexpectedly")
		}
	}

	logging.Info().Msg("Echotrace stopped")
}

// newDedupIndex selects the Badger-backed index when a path is
// configured, falling back to the in-memory index otherwise.
func newDedupIndex(cfg *config.DedupConfig) (dedup.Index, error) {
	if cfg.Path == "" {
		logging.Warn().Msg("No dedup index path configured, using in-memory index")
		return dedup.NewMemoryIndex(), nil
	}
	return dedup.NewBadgerIndex(cfg.Path)
}
