// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

/*
Package services provides suture.Service wrappers for gateway components that
do not already follow the Serve(ctx) pattern.

The catalog refresher, the session janitor and the event bus implement
suture.Service themselves and are added to the tree directly. The HTTP
server follows the ListenAndServe pattern and is adapted here:

	server := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

# Return values

	nil         -> stopped cleanly, not restarted
	error       -> crashed, restarted with backoff
	ctx.Err()   -> shutdown requested
*/
package services
