// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package authz provides route authorization using Casbin.
//
// Subjects are the session roles reported by session.Session.Role:
// anonymous, user, moderator and admin. Objects are logical resources of the
// gateway (places, favorites, profile, moderation, ...) and actions are read
// and write.
//
// # Architecture
//
//	Request -> Session Middleware -> Authz Middleware -> Handler
//	               |                      |
//	         Resume token            Enforce (Casbin)
//	       (internal/session)        (this package)
//
// # RBAC Model
//
// The embedded model uses role inheritance and keyMatch objects:
//
//	[matchers]
//	m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
//
// The embedded policy chains the roles so each inherits the permissions of
// the role below it:
//
//	g, user, anonymous
//	g, moderator, user
//	g, admin, moderator
//
//	p, anonymous, places, read
//	p, user, favorites, write
//	p, moderator, moderation, write
//	p, admin, *, *
//
// Both files can be replaced at runtime through AUTHZ_MODEL_PATH and
// AUTHZ_POLICY_PATH; a file policy is reloaded periodically.
//
// # Usage Example
//
//	enforcer, err := authz.NewEnforcer(ctx, &authz.EnforcerConfig{CacheTTL: time.Minute})
//	if err != nil {
//	    return err
//	}
//	defer enforcer.Close()
//
//	mw := authz.NewMiddleware(enforcer, writeError)
//	r.With(mw.Require("moderation", authz.ActionWrite)).Post("/moderation/...", h)
//
// # Responses
//
// A denied anonymous request is answered with 401 and session.ErrNoSession so
// clients know to sign in; a denied signed in request gets 403 and
// ErrForbidden. Enforcement errors produce 500.
//
// # Metrics
//
//   - authz_decisions_total{role, object, action, decision}
//   - authz_cache_hits_total, authz_cache_misses_total
package authz
