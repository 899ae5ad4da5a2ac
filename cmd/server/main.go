// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Command server runs the onboarding analytics API.
//
// The service starts even when the warehouse is not configured: data
// endpoints then return an availability error while health and catalog
// endpoints keep working. Long-lived components (catalog refresh loop, HTTP
// server) run under a suture supervision tree and shut down gracefully on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anshulvish/ob-reports/internal/api"
	"github.com/anshulvish/ob-reports/internal/cache"
	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/config"
	"github.com/anshulvish/ob-reports/internal/logging"
	"github.com/anshulvish/ob-reports/internal/supervisor"
	"github.com/anshulvish/ob-reports/internal/warehouse"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("dataset", cfg.Warehouse.DatasetID).
		Msg("Starting ob-reports")

	// Open the warehouse when configured; otherwise start degraded. A bad
	// warehouse config is an operator problem to fix, not a crash loop.
	var client warehouse.Client
	if cfg.Warehouse.Configured() {
		db, err := warehouse.OpenDuckDB(warehouse.DuckDBOptions{
			Path:      cfg.Warehouse.Path,
			ProjectID: cfg.Warehouse.ProjectID,
			ReadOnly:  true,
		})
		if err != nil {
			logging.Error().Err(err).Msg("Failed to open warehouse, starting in degraded mode")
		} else {
			client = db
			defer db.Close()
			logging.Info().Str("path", cfg.Warehouse.Path).Msg("Warehouse opened")
		}
	} else {
		logging.Warn().Msg("Warehouse not configured, starting in degraded mode")
	}

	exec := warehouse.NewExecutor(client, warehouse.ExecutorConfig{
		Timeout:          cfg.Warehouse.QueryTimeout,
		QueriesPerSecond: cfg.Warehouse.QueriesPerSecond,
		Burst:            cfg.Warehouse.QueryBurst,
		BreakerThreshold: cfg.Warehouse.BreakerThreshold,
		BreakerCooldown:  cfg.Warehouse.BreakerCooldown,
	})

	resolver := catalog.NewResolver(client, cfg.Warehouse.DatasetID, cfg.Catalog.RefreshInterval, cfg.Catalog.ListTimeout)
	if client != nil {
		if err := resolver.Refresh(context.Background(), true); err != nil {
			logging.Warn().Err(err).Msg("Initial catalog refresh failed, background refresh will retry")
		} else {
			logging.Info().Int("tables", len(resolver.AllTables())).Msg("Catalog loaded")
		}
	}

	respCache := cache.New(cfg.Cache.MetricsTTL, cfg.Cache.CleanupInterval)
	handler := api.NewHandler(cfg, resolver, exec, respCache, version)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddCatalogService(catalog.NewRefreshService(resolver, cfg.Catalog.RefreshInterval))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor fully stops.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped")
}
