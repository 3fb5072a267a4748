// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/mythmap/internal/authz"
	"github.com/tomtom215/mythmap/internal/middleware"
)

// Router wires handlers, middleware and authorization into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authz         *authz.Middleware
}

// NewRouter creates a router. enforcer decides every route except health,
// metrics and the credential endpoints.
func NewRouter(handler *Handler, enforcer *authz.Enforcer, cfg *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(cfg),
		authz:         authz.NewMiddleware(enforcer, denyRequest),
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	read := func(object string) func(http.Handler) http.Handler {
		return router.authz.Require(object, authz.ActionRead)
	}
	write := func(object string) func(http.Handler) http.Handler {
		return router.authz.Require(object, authz.ActionWrite)
	}

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.Health)
		r.Handle("/metrics", promhttp.Handler())

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(SessionMiddleware(h.sessions))

			// login and register draw from one per-IP budget
			loginLimit := router.chiMiddleware.RateLimitLogin()
			r.Route("/auth", func(r chi.Router) {
				r.With(loginLimit).Post("/login", h.Login)
				r.With(loginLimit).Post("/register", h.Register)
				r.With(write("session")).Post("/logout", h.Logout)
				r.With(read("session")).Get("/me", h.Me)
			})

			r.Route("/places", func(r chi.Router) {
				r.With(read("places")).Get("/", h.Places)
				r.With(read("places")).Get("/search", h.SearchPlaces)
				r.With(read("places")).Get("/nearest", h.NearestPlaces)
				r.With(write("contributions")).Post("/", h.CreatePlace)
				r.With(write("favorites")).Post("/{id}/favorite", h.ToggleFavorite)
				r.With(write("contributions")).Post("/{id}/notes", h.CreateNote)
				r.With(write("contributions")).Post("/{id}/comments", h.CreateComment)
			})

			r.With(read("categories")).Get("/categories", h.Categories)
			r.With(read("profile")).Get("/profile", h.Profile)
			r.With(read("xref")).Post("/xref/resolve", h.ResolveXrefs)

			r.Route("/moderation", func(r chi.Router) {
				r.Use(router.authz.Resource("moderation"))
				r.Get("/queue", h.ModerationQueue)
				r.Post("/{kind}/{id}/{action}", h.ModerationDecide)
			})
		})
	})

	return r
}
