// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

/*
Package api provides the HTTP API of the myths map gateway.

The gateway fronts the upstream myths REST API. It serves filtered place
lists out of per-session catalog snapshots, resolves note and comment place
references in batches, and relays sign in, submissions and moderation
decisions to the upstream.

# Routes

All routes live under /api/v1:

	GET  /health                          gateway and upstream breaker state
	GET  /metrics                         Prometheus exposition
	POST /auth/login                      exchange credentials for a token
	POST /auth/register                   create an account and sign in
	POST /auth/logout                     revoke the token
	GET  /auth/me                         current session
	GET  /places                          filtered places (?format=geojson)
	GET  /places/search?q=                text search
	GET  /places/nearest?lat=&lon=        places around a point, closest first
	POST /places                          submit a place
	POST /places/{id}/favorite            toggle a favorite
	POST /places/{id}/notes               add a note
	POST /places/{id}/comments            add a comment
	GET  /categories                      known categories
	GET  /profile                         own places, notes and favorites
	GET  /moderation/queue                pending submissions
	POST /moderation/{kind}/{id}/{action} approve or reject
	POST /xref/resolve                    label annotation place references

# Authentication

Clients send the upstream token as "Authorization: Token <t>". The session
middleware resolves it through the session manager; requests without the
header are anonymous. Each route is then checked by the Casbin enforcer of
package authz against the session role (anonymous, user, moderator, admin).

# Responses

Every response except GeoJSON output uses the APIResponse envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

Upstream failures are classified: an open circuit breaker is 503, a
malformed upstream body is 502, an upstream 4xx is relayed with its detail.
*/
package api
