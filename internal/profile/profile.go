// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package profile assembles the signed in user's own contributions.
package profile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/session"
	"github.com/tomtom215/mythmap/internal/xref"
)

// Upstream is the part of the myths API the profile needs.
type Upstream interface {
	ListPlaces(ctx context.Context, auth apiclient.Authorizer, q apiclient.PlaceQuery) ([]models.Place, error)
	PlacesByIDs(ctx context.Context, auth apiclient.Authorizer, ids []models.ID) ([]models.Place, error)
	ListNotes(ctx context.Context, auth apiclient.Authorizer, q apiclient.AnnotationQuery) ([]models.Annotation, error)
}

// FavoriteSource returns the places the user can see, with favorite flags
// computed for them. The catalog service satisfies it via PlacesFunc.
type FavoriteSource interface {
	VisiblePlaces(ctx context.Context, s *session.Session) ([]models.Place, error)
}

// PlacesFunc adapts a function to FavoriteSource.
type PlacesFunc func(ctx context.Context, s *session.Session) ([]models.Place, error)

// VisiblePlaces calls f.
func (f PlacesFunc) VisiblePlaces(ctx context.Context, s *session.Session) ([]models.Place, error) {
	return f(ctx, s)
}

// Note is one of the user's notes with its place label.
type Note struct {
	models.Annotation
	PlaceRef xref.Resolution `json:"place_ref"`
}

// View is the profile page.
type View struct {
	User      models.User    `json:"user"`
	RoleLabel string         `json:"role_label"`
	Places    []models.Place `json:"places"`
	Notes     []Note         `json:"notes"`
	Favorites []models.Place `json:"favorites"`
}

// Service loads profiles.
type Service struct {
	upstream  Upstream
	favorites FavoriteSource
}

// NewService creates a profile service.
func NewService(upstream Upstream, favorites FavoriteSource) *Service {
	return &Service{upstream: upstream, favorites: favorites}
}

// Load returns the profile of s: own places of every moderation status, own
// notes with place labels, and favorite places.
func (svc *Service) Load(ctx context.Context, s *session.Session) (*View, error) {
	if s == nil {
		return nil, session.ErrNoSession
	}
	user := s.User()

	var (
		places  []models.Place
		notes   []models.Annotation
		visible []models.Place
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		places, err = svc.upstream.ListPlaces(gctx, s, apiclient.PlaceQuery{Owner: user.ID})
		if err != nil {
			return fmt.Errorf("list own places: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		notes, err = svc.upstream.ListNotes(gctx, s, apiclient.AnnotationQuery{User: user.ID})
		if err != nil {
			return fmt.Errorf("list own notes: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		visible, err = svc.favorites.VisiblePlaces(gctx, s)
		if err != nil {
			return fmt.Errorf("list favorites: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	loader := xref.NewLoader(xref.FetchFunc(func(ctx context.Context, ids []models.ID) ([]models.Place, error) {
		return svc.upstream.PlacesByIDs(ctx, s, ids)
	}))
	refs, err := loader.LoadAll(ctx, notes)
	if err != nil {
		return nil, fmt.Errorf("resolve note places: %w", err)
	}

	view := &View{
		User:      *user,
		RoleLabel: user.RoleLabel(),
		Places:    nonNil(places),
		Notes:     make([]Note, len(notes)),
		Favorites: []models.Place{},
	}
	for i := range notes {
		view.Notes[i] = Note{Annotation: notes[i], PlaceRef: refs[i]}
	}
	for i := range visible {
		if visible[i].Favorite || visible[i].FavoritedBy(user.ID) {
			view.Favorites = append(view.Favorites, visible[i])
		}
	}
	return view, nil
}

func nonNil(places []models.Place) []models.Place {
	if places == nil {
		return []models.Place{}
	}
	return places
}
