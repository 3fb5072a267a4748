// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package models

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/geo"
)

// ModerationStatus governs the visibility of user submitted content.
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Place is a point of interest, flattened from its GeoJSON feature.
type Place struct {
	ID              ID               `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Categories      string           `json:"categories"`                // comma separated, as stored upstream
	Geometry        json.RawMessage  `json:"geometry,omitempty"`        // WKT string or GeoJSON Point
	Favorite        bool             `json:"favorite"`                  // for the requesting user
	Favorites       []ID             `json:"favorites,omitempty"`       // user ids, when the upstream exposes them
	Status          ModerationStatus `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	Owner           *User            `json:"owner,omitempty"`
	Image           string           `json:"image,omitempty"`
	AvgRating       *float64         `json:"avg_rating,omitempty"`
	NotesCount      int              `json:"notes_count"`
	DistanceMeters  *float64         `json:"distance,omitempty"` // set by the nearest endpoint
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Coordinates parses the place geometry.
func (p *Place) Coordinates() (geo.Coordinates, bool) {
	if len(p.Geometry) == 0 {
		return geo.Coordinates{}, false
	}
	return geo.ParsePoint(p.Geometry)
}

// FavoritedBy reports whether userID appears in the favorites list.
func (p *Place) FavoritedBy(userID ID) bool {
	if userID.IsZero() {
		return false
	}
	for _, id := range p.Favorites {
		if id == userID {
			return true
		}
	}
	return false
}

// PlaceProperties is the properties bag of a place feature.
type PlaceProperties struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Categories      string           `json:"categories"`
	Favorite        bool             `json:"favorite"`
	IsFavorite      bool             `json:"is_favorite"`
	Favorites       []ID             `json:"favorites"`
	Status          ModerationStatus `json:"status"`
	RejectionReason *string          `json:"rejection_reason"`
	Owner           *User            `json:"owner"`
	Image           *string          `json:"image"`
	AvgRating       *float64         `json:"avg_rating"`
	NotesCount      int              `json:"notes_count"`
	Distance        *float64         `json:"distance"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Feature is a GeoJSON feature describing one place.
type Feature struct {
	Type       string          `json:"type"`
	ID         ID              `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties PlaceProperties `json:"properties"`
}

// FeatureCollection is the upstream place list envelope.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Place flattens the feature.
func (f *Feature) Place() Place {
	pr := f.Properties
	p := Place{
		ID:             f.ID,
		Name:           pr.Name,
		Description:    pr.Description,
		Categories:     pr.Categories,
		Favorite:       pr.Favorite || pr.IsFavorite,
		Favorites:      pr.Favorites,
		Status:         pr.Status,
		Owner:          pr.Owner,
		AvgRating:      pr.AvgRating,
		NotesCount:     pr.NotesCount,
		DistanceMeters: pr.Distance,
		CreatedAt:      pr.CreatedAt,
		UpdatedAt:      pr.UpdatedAt,
	}
	if !isJSONNull(f.Geometry) {
		p.Geometry = f.Geometry
	}
	if pr.RejectionReason != nil {
		p.RejectionReason = *pr.RejectionReason
	}
	if pr.Image != nil {
		p.Image = *pr.Image
	}
	return p
}

// Feature converts the place back into a GeoJSON feature. Geometry is
// normalized to a GeoJSON Point when it parses, and kept verbatim otherwise.
func (p *Place) Feature() Feature {
	f := Feature{
		Type: "Feature",
		ID:   p.ID,
		Properties: PlaceProperties{
			Name:        p.Name,
			Description: p.Description,
			Categories:  p.Categories,
			Favorite:    p.Favorite,
			IsFavorite:  p.Favorite,
			Favorites:   p.Favorites,
			Status:      p.Status,
			Owner:       p.Owner,
			AvgRating:   p.AvgRating,
			NotesCount:  p.NotesCount,
			Distance:    p.DistanceMeters,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		},
	}
	if p.RejectionReason != "" {
		r := p.RejectionReason
		f.Properties.RejectionReason = &r
	}
	if p.Image != "" {
		img := p.Image
		f.Properties.Image = &img
	}
	if c, ok := p.Coordinates(); ok {
		if b, err := json.Marshal(geo.NewGeoJSONPoint(c)); err == nil {
			f.Geometry = b
		}
	} else if len(p.Geometry) > 0 {
		f.Geometry = p.Geometry
	}
	if f.Geometry == nil {
		f.Geometry = json.RawMessage("null")
	}
	return f
}

// NewFeatureCollection wraps places into a FeatureCollection.
func NewFeatureCollection(places []Place) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(places))}
	for i := range places {
		fc.Features = append(fc.Features, places[i].Feature())
	}
	return fc
}

func isJSONNull(b json.RawMessage) bool {
	return len(b) == 0 || string(b) == "null"
}

// PlaceSubmission is the payload for creating a place.
type PlaceSubmission struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Categories  string          `json:"categories" validate:"max=500"`
	Location    geo.Coordinates `json:"location"`
}
