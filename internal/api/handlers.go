// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"context"
	"time"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/catalog"
	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/moderation"
	"github.com/tomtom215/mythmap/internal/profile"
	"github.com/tomtom215/mythmap/internal/session"
)

// Catalog serves the cached place snapshots. *catalog.Service implements it.
type Catalog interface {
	Places(ctx context.Context, s *session.Session, v catalog.View) ([]models.Place, error)
	Categories(ctx context.Context, s *session.Session) ([]string, error)
	Nearest(ctx context.Context, s *session.Session, center geo.Coordinates, radiusKm float64) ([]catalog.NearbyPlace, error)
	ToggleFavorite(ctx context.Context, s *session.Session, id models.ID) (bool, error)
	Invalidate(key string)
	Len() int
}

// Sessions manages sign in state. *session.Manager implements it.
type Sessions interface {
	Start(ctx context.Context, username, password string) (*session.Session, error)
	Register(ctx context.Context, username, email, password string) (*session.Session, error)
	Resume(ctx context.Context, token string) (*session.Session, error)
	Close(ctx context.Context, s *session.Session) error
	Len() int
}

// Moderation is the moderation queue. *moderation.Queue implements it.
type Moderation interface {
	Pending(ctx context.Context, s *session.Session) ([]moderation.Item, error)
	Decide(ctx context.Context, s *session.Session, target apiclient.ModerationTarget, id models.ID, action apiclient.ModerationAction, reason string) error
}

// Profiles loads profile pages. *profile.Service implements it.
type Profiles interface {
	Load(ctx context.Context, s *session.Session) (*profile.View, error)
}

// Upstream is the part of the myths API the handlers call directly.
// *apiclient.Client implements it.
type Upstream interface {
	PlacesByIDs(ctx context.Context, auth apiclient.Authorizer, ids []models.ID) ([]models.Place, error)
	CreatePlace(ctx context.Context, auth apiclient.Authorizer, sub models.PlaceSubmission) (models.Place, error)
	CreateNote(ctx context.Context, auth apiclient.Authorizer, sub models.NoteSubmission) (models.Annotation, error)
	CreateComment(ctx context.Context, auth apiclient.Authorizer, sub models.CommentSubmission) (models.Annotation, error)
	BreakerState() string
}

// Deps are the services the handlers use.
type Deps struct {
	Catalog    Catalog
	Sessions   Sessions
	Moderation Moderation
	Profiles   Profiles
	Upstream   Upstream
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files by route group:
//   - handlers_health.go: health probe
//   - handlers_places.go: place listing, search, nearest, categories, favorites, submissions
//   - handlers_auth.go: login, register, logout, current user
//   - handlers_profile.go: profile page
//   - handlers_moderation.go: moderation queue and decisions
//   - handlers_xref.go: batch place label resolution
type Handler struct {
	catalog    Catalog
	sessions   Sessions
	moderation Moderation
	profiles   Profiles
	upstream   Upstream
	startTime  time.Time
}

// NewHandler creates the API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		catalog:    deps.Catalog,
		sessions:   deps.Sessions,
		moderation: deps.Moderation,
		profiles:   deps.Profiles,
		upstream:   deps.Upstream,
		startTime:  time.Now(),
	}
}

// currentSession returns the session resolved by the session middleware, or
// nil for anonymous requests.
func currentSession(ctx context.Context) *session.Session {
	s, _ := session.FromContext(ctx)
	return s
}
