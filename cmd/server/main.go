// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/mythmap/internal/api"
	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/authz"
	"github.com/tomtom215/mythmap/internal/catalog"
	"github.com/tomtom215/mythmap/internal/config"
	"github.com/tomtom215/mythmap/internal/events"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/moderation"
	"github.com/tomtom215/mythmap/internal/profile"
	"github.com/tomtom215/mythmap/internal/session"
	"github.com/tomtom215/mythmap/internal/supervisor"
	"github.com/tomtom215/mythmap/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("upstream", cfg.Upstream.BaseURL).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Mythmap gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := apiclient.New(&cfg.Upstream)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create myths API client")
	}

	// Catalog snapshots are keyed by session token and dropped on logout or
	// session expiry.
	catalogSvc := catalog.NewService(client, cfg.Catalog)
	sessions := session.NewManager(client, cfg.Session)
	sessions.OnClose(catalogSvc.Drop)

	bus := events.NewBus(events.DefaultRouterConfig(), logging.NewWatermillAdapter())
	events.HandleCatalogInvalidated(bus, "catalog-invalidation", events.InvalidateCatalog(catalogSvc))
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	queue := moderation.NewQueue(client, bus)
	profiles := profile.NewService(client, profile.PlacesFunc(func(ctx context.Context, s *session.Session) ([]models.Place, error) {
		return catalogSvc.Places(ctx, s, catalog.NewView())
	}))

	enforcer, err := authz.NewEnforcer(ctx, authz.ConfigFrom(cfg.Authz))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}
	defer enforcer.Close()

	handler := api.NewHandler(api.Deps{
		Catalog:    catalogSvc,
		Sessions:   sessions,
		Moderation: queue,
		Profiles:   profiles,
		Upstream:   client,
	})
	router := api.NewRouter(handler, enforcer, api.ChiMiddlewareConfigFrom(cfg.Server))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddCatalogService(catalogSvc)
	tree.AddCatalogService(sessions)
	tree.AddEventService(bus)
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	// SIGHUP reloads a file based authorization policy.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				if err := enforcer.LoadPolicy(); err != nil {
					logging.Warn().Err(err).Msg("Authorization policy reload skipped")
				} else {
					logging.Info().Msg("Authorization policy reloaded")
				}
				continue
			}
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
			return
		}
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
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

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Gateway stopped")
}
