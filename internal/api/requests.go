// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/catalog"
	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// errBadParam marks malformed query parameters.
var errBadParam = errors.New("malformed parameter")

// PlacesQuery is the query of GET /places.
type PlacesQuery struct {
	Categories string  `query:"categories" validate:"omitempty,categories"`
	Search     string  `query:"q" validate:"max=200"`
	Favorites  bool    `query:"favorites"`
	Near       bool    `query:"near"`
	Latitude   float64 `query:"lat" validate:"latitude"`
	Longitude  float64 `query:"lon" validate:"longitude"`
	RadiusKm   float64 `query:"radius_km" validate:"omitempty,gte=1,lte=10"`
	Format     string  `query:"format" validate:"omitempty,oneof=json geojson"`

	hasLocation bool
}

// View translates the query into a map view. Search text switches the view
// to search mode, which ignores the other filters.
func (q PlacesQuery) View() (catalog.View, error) {
	v := catalog.NewView()
	if q.Categories != "" {
		v = v.WithCategories(catalog.ParseCategories(q.Categories))
	}
	if q.Favorites {
		v = v.ToggleFavorites()
	}
	if q.RadiusKm > 0 {
		v = v.SetRadius(q.RadiusKm)
	}
	if q.Near {
		if !q.hasLocation {
			return v, catalog.ErrNoLocation
		}
		var err error
		v, err = v.EnableNearMe(geo.Coordinates{Latitude: q.Latitude, Longitude: q.Longitude}, q.RadiusKm)
		if err != nil {
			return v, err
		}
	}
	if q.Search != "" {
		v = v.SetSearch(q.Search)
	}
	return v, nil
}

func parsePlacesQuery(values url.Values) (PlacesQuery, error) {
	q := PlacesQuery{
		Categories: values.Get("categories"),
		Search:     strings.TrimSpace(values.Get("q")),
		Format:     values.Get("format"),
	}
	var err error
	if q.Favorites, err = boolParam(values, "favorites"); err != nil {
		return q, err
	}
	if q.Near, err = boolParam(values, "near"); err != nil {
		return q, err
	}
	if q.RadiusKm, _, err = floatParam(values, "radius_km"); err != nil {
		return q, err
	}
	lat, hasLat, err := floatParam(values, "lat")
	if err != nil {
		return q, err
	}
	lon, hasLon, err := floatParam(values, "lon")
	if err != nil {
		return q, err
	}
	q.Latitude, q.Longitude, q.hasLocation = lat, lon, hasLat && hasLon
	return q, validateRequest(q)
}

// NearestQuery is the query of GET /places/nearest.
type NearestQuery struct {
	Latitude  float64 `query:"lat" validate:"latitude"`
	Longitude float64 `query:"lon" validate:"longitude"`
	RadiusKm  float64 `query:"radius_km" validate:"omitempty,gt=0,lte=50"`
}

func parseNearestQuery(values url.Values) (NearestQuery, error) {
	var q NearestQuery
	lat, hasLat, err := floatParam(values, "lat")
	if err != nil {
		return q, err
	}
	lon, hasLon, err := floatParam(values, "lon")
	if err != nil {
		return q, err
	}
	if !hasLat || !hasLon {
		return q, catalog.ErrNoLocation
	}
	q.Latitude, q.Longitude = lat, lon
	if q.RadiusKm, _, err = floatParam(values, "radius_km"); err != nil {
		return q, err
	}
	return q, validateRequest(q)
}

// SearchQuery is the query of GET /places/search.
type SearchQuery struct {
	Text string `query:"q" validate:"max=200"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// DecisionParams are the path parameters of a moderation decision.
type DecisionParams struct {
	Kind   string `json:"kind" validate:"oneof=place note comment"`
	ID     string `json:"id" validate:"object_id"`
	Action string `json:"action" validate:"oneof=approve reject"`
}

// DecisionRequest is the optional body of a moderation decision.
type DecisionRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// NoteRequest is the body of POST /places/{id}/notes.
type NoteRequest struct {
	Text   string `json:"text"`
	Rating *int   `json:"rating,omitempty"`
}

// CommentRequest is the body of POST /places/{id}/comments.
type CommentRequest struct {
	Text string `json:"text"`
}

// XrefRequest is the body of POST /xref/resolve.
type XrefRequest struct {
	Annotations []models.Annotation `json:"annotations" validate:"max=500"`
}

// validateRequest validates req, returning nil or a *RequestValidationError.
func validateRequest(req any) error {
	if verr := validation.ValidateStruct(req); verr != nil {
		return verr
	}
	return nil
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	default:
		return fmt.Errorf("%w: request body: %v", errBadParam, err)
	}
}

func floatParam(values url.Values, name string) (float64, bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number", errBadParam, name)
	}
	return f, true, nil
}

func boolParam(values url.Values, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(values.Get(name))) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", errBadParam, name)
	}
}
