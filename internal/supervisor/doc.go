// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

/*
Package supervisor runs the gateway's long-lived services under suture v4.

# Overview

	RootSupervisor ("mythmap")
	├── CatalogSupervisor ("catalog-layer")
	│   ├── catalog-refresher  (catalog.Service)
	│   └── session-janitor    (session.Manager)
	├── EventsSupervisor ("events-layer")
	│   └── event-bus          (events.Bus)
	└── APISupervisor ("api-layer")
	    └── http-server        (services.HTTPServerService)

Each layer restarts its own services with backoff. A refresher crash never
takes the HTTP server down; the API keeps answering from the snapshots it
already holds.

# Logging

Supervisor events go through sutureslog to the slog logger passed to
NewSupervisorTree. The gateway passes logging.NewSlogLogger, so restarts
and backoff show up in the zerolog output.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	tree.AddCatalogService(catalogSvc)
	tree.AddCatalogService(sessions)
	tree.AddEventService(bus)
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
