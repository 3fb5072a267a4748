// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/models"
)

// maxIDsPerLookup bounds the id__in list of one batch lookup.
const maxIDsPerLookup = 100

// PlaceQuery filters the place listing. Zero fields are omitted.
type PlaceQuery struct {
	Status     models.ModerationStatus
	Owner      models.ID
	Name       string
	Categories string
	Search     string
	PageSize   int
}

func (q PlaceQuery) values(defaultPageSize int) url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if !q.Owner.IsZero() {
		v.Set("owner", q.Owner.String())
	}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if q.Categories != "" {
		v.Set("categories", q.Categories)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > 0 {
		v.Set("page_size", strconv.Itoa(size))
	}
	return v
}

// ListPlaces returns all places matching q, following pagination links.
// Favorite flags are computed upstream for the authorized user.
func (c *Client) ListPlaces(ctx context.Context, auth Authorizer, q PlaceQuery) ([]models.Place, error) {
	return c.listPlaces(ctx, "list_places", "/api/places/", q.values(c.pageSize), auth)
}

// NearestPlaces returns places within radiusKm of center, nearest first, with
// DistanceMeters set. A non-positive radius is unbounded.
func (c *Client) NearestPlaces(ctx context.Context, auth Authorizer, center geo.Coordinates, radiusKm float64) ([]models.Place, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("nearest_places: invalid coordinates %v,%v", center.Latitude, center.Longitude)
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(center.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(center.Longitude, 'f', -1, 64))
	if radiusKm > 0 {
		q.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	}
	return c.listPlaces(ctx, "nearest_places", "/api/places/nearest/", q, auth)
}

// PlacesByIDs batch fetches places with ?id__in=. Ids the upstream does not
// return are simply absent from the result.
func (c *Client) PlacesByIDs(ctx context.Context, auth Authorizer, ids []models.ID) ([]models.Place, error) {
	out := make([]models.Place, 0, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerLookup {
		end := min(start+maxIDsPerLookup, len(ids))
		q := url.Values{}
		q.Set("id__in", models.JoinIDs(ids[start:end]))
		q.Set("page_size", strconv.Itoa(maxIDsPerLookup))
		batch, err := c.listPlaces(ctx, "places_by_ids", "/api/places/", q, auth)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) listPlaces(ctx context.Context, op, path string, q url.Values, auth Authorizer) ([]models.Place, error) {
	var out []models.Place
	for page := 0; page < maxPages; page++ {
		resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: q, auth: auth})
		if err != nil {
			return nil, err
		}
		coll, err := DecodePlaces(op, resp.body)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make([]models.Place, 0, max(coll.Count, len(coll.Items)))
		}
		out = append(out, coll.Items...)
		if coll.Next == "" {
			return out, nil
		}
		path, q = coll.Next, nil
	}
	return nil, fmt.Errorf("%s: more than %d pages", op, maxPages)
}

// placeFeatureRequest is the GeoJSON body the place serializer accepts.
type placeFeatureRequest struct {
	Type       string            `json:"type"`
	Geometry   geo.GeoJSONPoint  `json:"geometry"`
	Properties placeRequestProps `json:"properties"`
}

type placeRequestProps struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Categories  string `json:"categories"`
}

// CreatePlace submits a new place. It starts in pending moderation.
func (c *Client) CreatePlace(ctx context.Context, auth Authorizer, sub models.PlaceSubmission) (models.Place, error) {
	const op = "create_place"
	body := placeFeatureRequest{
		Type:     "Feature",
		Geometry: geo.NewGeoJSONPoint(sub.Location),
		Properties: placeRequestProps{
			Name:        sub.Name,
			Description: sub.Description,
			Categories:  sub.Categories,
		},
	}
	resp, err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/api/places/", body: body, auth: auth})
	if err != nil {
		return models.Place{}, err
	}
	p, err := decodePlace(resp.body, false)
	if err != nil {
		return models.Place{}, decodeFailed(op, &DecodeError{Reason: "created place", Snippet: truncate(resp.body, 64), Err: err})
	}
	return p, nil
}

// ToggleFavorite flips the favorite flag of a place for the authorized user.
// It reports true when the place was added (HTTP 201) and false when removed (HTTP 200).
func (c *Client) ToggleFavorite(ctx context.Context, auth Authorizer, id models.ID) (bool, error) {
	path := "/api/places/" + url.PathEscape(id.String()) + "/toggle_favorite/"
	resp, err := c.do(ctx, request{op: "toggle_favorite", method: http.MethodPost, path: path, body: struct{}{}, auth: auth})
	if err != nil {
		return false, err
	}
	return resp.status == http.StatusCreated, nil
}
