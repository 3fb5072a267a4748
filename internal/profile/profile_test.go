// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/session"
	"github.com/tomtom215/mythmap/internal/xref"
)

type fakeUpstream struct {
	placeQuery apiclient.PlaceQuery
	noteQuery  apiclient.AnnotationQuery
	own        []models.Place
	notes      []models.Annotation
	known      map[models.ID]string
	err        error
}

func (f *fakeUpstream) ListPlaces(_ context.Context, _ apiclient.Authorizer, q apiclient.PlaceQuery) ([]models.Place, error) {
	f.placeQuery = q
	return f.own, f.err
}

func (f *fakeUpstream) PlacesByIDs(_ context.Context, _ apiclient.Authorizer, ids []models.ID) ([]models.Place, error) {
	var out []models.Place
	for _, id := range ids {
		if name, ok := f.known[id]; ok {
			out = append(out, models.Place{ID: id, Name: name})
		}
	}
	return out, nil
}

func (f *fakeUpstream) ListNotes(_ context.Context, _ apiclient.Authorizer, q apiclient.AnnotationQuery) ([]models.Annotation, error) {
	f.noteQuery = q
	return f.notes, nil
}

func visible(places ...models.Place) PlacesFunc {
	return func(context.Context, *session.Session) ([]models.Place, error) {
		return places, nil
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	reason := "дубликат"
	up := &fakeUpstream{
		own: []models.Place{{ID: "5", Name: "Моё место", Status: models.StatusPending}},
		notes: []models.Annotation{
			{ID: "1", Place: models.PlaceRef{ScalarID: "5"}, Status: models.StatusApproved},
			{ID: "2", Place: models.PlaceRef{ScalarID: "6"}, Status: models.StatusRejected, RejectionReason: &reason},
		},
		known: map[models.ID]string{"5": "Моё место"},
	}
	favs := visible(
		models.Place{ID: "7", Name: "flagged", Favorite: true},
		models.Place{ID: "8", Name: "listed", Favorites: []models.ID{"42"}},
		models.Place{ID: "9", Name: "other"},
	)
	s := session.New("tok", models.User{ID: "42", Username: "anna"}, time.Now())

	v, err := NewService(up, favs).Load(context.Background(), s)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if up.placeQuery.Owner != "42" || up.noteQuery.User != "42" {
		t.Errorf("queries = %+v %+v, want owner/user 42", up.placeQuery, up.noteQuery)
	}
	if v.RoleLabel != "Пользователь" || v.User.Username != "anna" {
		t.Errorf("user = %+v role %q", v.User, v.RoleLabel)
	}
	if len(v.Places) != 1 || v.Places[0].Status != models.StatusPending {
		t.Errorf("places = %+v", v.Places)
	}
	if len(v.Notes) != 2 {
		t.Fatalf("notes = %+v", v.Notes)
	}
	if v.Notes[0].PlaceRef.Label() != "Моё место" {
		t.Errorf("note 1 label = %q", v.Notes[0].PlaceRef.Label())
	}
	if v.Notes[1].PlaceRef.State != xref.StateMissing || v.Notes[1].Reason() != reason {
		t.Errorf("note 2 = %+v", v.Notes[1])
	}
	if len(v.Favorites) != 2 || v.Favorites[0].ID != "7" || v.Favorites[1].ID != "8" {
		t.Errorf("favorites = %+v", v.Favorites)
	}
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	s := session.New("tok", models.User{ID: "1", Username: "a", IsSuperuser: true}, time.Now())
	v, err := NewService(&fakeUpstream{}, visible()).Load(context.Background(), s)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v.Places == nil || v.Notes == nil || v.Favorites == nil {
		t.Error("empty collections must be non-nil")
	}
	if v.RoleLabel != "Администратор" {
		t.Errorf("RoleLabel = %q", v.RoleLabel)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewService(&fakeUpstream{}, visible()).Load(context.Background(), nil); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("Load(nil) error = %v, want ErrNoSession", err)
	}

	up := &fakeUpstream{err: errors.New("boom")}
	s := session.New("tok", models.User{ID: "1"}, time.Now())
	if _, err := NewService(up, visible()).Load(context.Background(), s); !errors.Is(err, up.err) {
		t.Errorf("Load() error = %v, want upstream error", err)
	}
}
