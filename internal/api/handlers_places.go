// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/mythmap/internal/catalog"
	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/models"
)

// geoJSONContentType is served for ?format=geojson.
const geoJSONContentType = "application/geo+json"

// placeParams is the {id} path parameter of place routes.
type placeParams struct {
	ID string `json:"id" validate:"object_id"`
}

func placeIDParam(r *http.Request) (models.ID, error) {
	p := placeParams{ID: chi.URLParam(r, "id")}
	if err := validateRequest(p); err != nil {
		return "", err
	}
	return models.ID(p.ID), nil
}

// FavoriteResult is the body of POST /places/{id}/favorite.
type FavoriteResult struct {
	ID       models.ID `json:"id"`
	Favorite bool      `json:"favorite"`
}

// Places lists the places visible in a map view
//
// @Summary List places
// @Description Applies category, favorites, near-me and search filters to the cached catalog
// @Tags Places
// @Produce json
// @Param categories query string false "Comma separated categories"
// @Param q query string false "Search text; replaces the other filters"
// @Param favorites query bool false "Only favorites"
// @Param near query bool false "Only places near lat/lon"
// @Param format query string false "json or geojson"
// @Success 200 {object} APIResponse{data=[]models.Place}
// @Router /places [get]
func (h *Handler) Places(w http.ResponseWriter, r *http.Request) {
	q, err := parsePlacesQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	view, err := q.View()
	if err != nil {
		respondError(w, r, err)
		return
	}

	places, err := h.catalog.Places(r.Context(), currentSession(r.Context()), view)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.writePlaces(w, r, places, q.Format)
}

// SearchPlaces matches places by name or category
//
// @Summary Search places
// @Tags Places
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {object} APIResponse{data=[]models.Place}
// @Router /places/search [get]
func (h *Handler) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	q := SearchQuery{Text: strings.TrimSpace(r.URL.Query().Get("q"))}
	if err := validateRequest(q); err != nil {
		respondError(w, r, err)
		return
	}

	places, err := h.catalog.Places(r.Context(), currentSession(r.Context()), catalog.NewView().SetSearch(q.Text))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.writePlaces(w, r, places, r.URL.Query().Get("format"))
}

func (h *Handler) writePlaces(w http.ResponseWriter, r *http.Request, places []models.Place, format string) {
	if places == nil {
		places = []models.Place{}
	}
	rw := NewResponseWriter(w, r)
	if format == "geojson" {
		rw.Raw(geoJSONContentType, models.NewFeatureCollection(places))
		return
	}
	rw.List(places, len(places))
}

// NearestPlaces lists places around a point, closest first
//
// @Summary Nearest places
// @Tags Places
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param radius_km query number false "Search radius, at most 50"
// @Success 200 {object} APIResponse{data=[]catalog.NearbyPlace}
// @Router /places/nearest [get]
func (h *Handler) NearestPlaces(w http.ResponseWriter, r *http.Request) {
	q, err := parseNearestQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	center := geo.Coordinates{Latitude: q.Latitude, Longitude: q.Longitude}
	nearby, err := h.catalog.Nearest(r.Context(), currentSession(r.Context()), center, q.RadiusKm)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if nearby == nil {
		nearby = []catalog.NearbyPlace{}
	}
	NewResponseWriter(w, r).List(nearby, len(nearby))
}

// Categories lists the categories present in the catalog
//
// @Summary List categories
// @Tags Places
// @Produce json
// @Success 200 {object} APIResponse{data=[]string}
// @Router /categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context(), currentSession(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	NewResponseWriter(w, r).List(cats, len(cats))
}

// ToggleFavorite flips the favorite flag of a place for the signed in user.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := placeIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s := currentSession(r.Context())

	favorite, err := h.catalog.ToggleFavorite(r.Context(), s, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().Str("place_id", id.String()).Bool("favorite", favorite).Msg("Favorite toggled")
	WriteSuccess(w, r, FavoriteResult{ID: id, Favorite: favorite})
}

// CreatePlace submits a new place for moderation. The submitter's catalog is
// invalidated so the pending place shows up on the next read.
func (h *Handler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	var sub models.PlaceSubmission
	if err := decodeJSON(w, r, &sub, false); err != nil {
		respondError(w, r, err)
		return
	}
	sub.Name = strings.TrimSpace(sub.Name)
	if err := validateRequest(sub); err != nil {
		respondError(w, r, err)
		return
	}
	s := currentSession(r.Context())

	place, err := h.upstream.CreatePlace(r.Context(), s, sub)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.catalog.Invalidate(s.Key())
	logging.Audit(r.Context(), logging.AuditEvent{Action: "place.create", Username: s.Username(), Target: place.ID.String(), Success: true})
	NewResponseWriter(w, r).Created(place)
}

// CreateNote attaches a note to a place.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	id, err := placeIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req NoteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	sub := models.NoteSubmission{PlaceID: id, Text: strings.TrimSpace(req.Text), Rating: req.Rating}
	if err := validateRequest(sub); err != nil {
		respondError(w, r, err)
		return
	}

	s := currentSession(r.Context())
	note, err := h.upstream.CreateNote(r.Context(), s, sub)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.catalog.Invalidate(s.Key())
	logging.Audit(r.Context(), logging.AuditEvent{Action: "note.create", Username: s.Username(), Target: id.String(), Success: true})
	NewResponseWriter(w, r).Created(note)
}

// CreateComment attaches a comment to a place.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, err := placeIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req CommentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	sub := models.CommentSubmission{PlaceID: id, Text: strings.TrimSpace(req.Text)}
	if err := validateRequest(sub); err != nil {
		respondError(w, r, err)
		return
	}

	s := currentSession(r.Context())
	comment, err := h.upstream.CreateComment(r.Context(), s, sub)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.catalog.Invalidate(s.Key())
	logging.Audit(r.Context(), logging.AuditEvent{Action: "comment.create", Username: s.Username(), Target: id.String(), Success: true})
	NewResponseWriter(w, r).Created(comment)
}
