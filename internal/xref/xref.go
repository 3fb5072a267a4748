// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package xref attaches place names to notes and comments that only carry a
// place reference.
//
// Every reference resolves to one of three states: Resolved (the place was
// found), Orphaned (the annotation carries no place id) or Missing (the id is
// present but the place is gone upstream). A missing place is never an error;
// only a failed batch fetch is.
package xref

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/metrics"
	"github.com/tomtom215/mythmap/internal/models"
)

// Display labels for unresolved references.
const (
	LabelOrphaned = "Неизвестно"
	LabelMissing  = "Место удалено"
)

// State is the outcome of resolving one place reference.
type State int

const (
	StateOrphaned State = iota
	StateMissing
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateMissing:
		return "missing"
	default:
		return "orphaned"
	}
}

// Resolution is a resolved place reference. Name is set only when State is
// StateResolved; PlaceID is zero only when State is StateOrphaned.
type Resolution struct {
	State   State     `json:"-"`
	PlaceID models.ID `json:"place_id"`
	Name    string    `json:"name,omitempty"`
}

// Resolved returns a resolved reference.
func Resolved(id models.ID, name string) Resolution {
	return Resolution{State: StateResolved, PlaceID: id, Name: name}
}

// Missing returns a reference to a place that no longer exists.
func Missing(id models.ID) Resolution {
	return Resolution{State: StateMissing, PlaceID: id}
}

// Orphaned returns a reference without a place id.
func Orphaned() Resolution {
	return Resolution{State: StateOrphaned}
}

// Label renders the reference for display.
func (r Resolution) Label() string {
	switch r.State {
	case StateResolved:
		return r.Name
	case StateMissing:
		return LabelMissing
	default:
		return LabelOrphaned
	}
}

// MarshalJSON adds the state name and display label.
func (r Resolution) MarshalJSON() ([]byte, error) {
	type wire struct {
		State   string     `json:"state"`
		PlaceID *models.ID `json:"place_id"`
		Name    string     `json:"name,omitempty"`
		Label   string     `json:"label"`
	}
	w := wire{State: r.State.String(), Name: r.Name, Label: r.Label()}
	if !r.PlaceID.IsZero() {
		id := r.PlaceID
		w.PlaceID = &id
	}
	return json.Marshal(w)
}

// ExtractPlaceID returns the place id of a, preferring an embedded place
// object over a scalar id. It reports false for orphaned annotations.
func ExtractPlaceID(a *models.Annotation) (models.ID, bool) {
	if a.Place.Embedded != nil && !a.Place.Embedded.ID.IsZero() {
		return a.Place.Embedded.ID, true
	}
	if !a.Place.ScalarID.IsZero() {
		return a.Place.ScalarID, true
	}
	if !a.PlaceID.IsZero() {
		return a.PlaceID, true
	}
	return "", false
}

// ReferencedIDs returns the distinct place ids referenced by annotations in
// first seen order.
func ReferencedIDs(annotations []models.Annotation) []models.ID {
	seen := make(map[models.ID]struct{}, len(annotations))
	ids := make([]models.ID, 0, len(annotations))
	for i := range annotations {
		id, ok := ExtractPlaceID(&annotations[i])
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ResolvePlaceNames maps the ids referenced by annotations to names found in
// places. Referenced ids absent from places are absent from the map.
func ResolvePlaceNames(annotations []models.Annotation, places []models.Place) map[models.ID]string {
	byID := make(map[models.ID]string, len(places))
	for i := range places {
		byID[places[i].ID] = places[i].Name
	}
	names := make(map[models.ID]string)
	for _, id := range ReferencedIDs(annotations) {
		if name, ok := byID[id]; ok {
			names[id] = name
		}
	}
	return names
}

// Lookup resolves one reference against names. ok is the second result of
// ExtractPlaceID.
func Lookup(id models.ID, ok bool, names map[models.ID]string) Resolution {
	if !ok || id.IsZero() {
		return Orphaned()
	}
	if name, found := names[id]; found {
		return Resolved(id, name)
	}
	return Missing(id)
}

// PlaceFetcher loads places by id. Ids with no matching place are omitted
// from the result rather than reported as errors.
type PlaceFetcher interface {
	FetchPlacesByIDs(ctx context.Context, ids []models.ID) ([]models.Place, error)
}

// FetchFunc adapts a function to PlaceFetcher.
type FetchFunc func(ctx context.Context, ids []models.ID) ([]models.Place, error)

// FetchPlacesByIDs calls f.
func (f FetchFunc) FetchPlacesByIDs(ctx context.Context, ids []models.ID) ([]models.Place, error) {
	return f(ctx, ids)
}

// Resolver resolves annotation batches with a single fetch.
type Resolver struct {
	fetcher PlaceFetcher
}

// NewResolver creates a resolver backed by fetcher.
func NewResolver(fetcher PlaceFetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve returns one Resolution per annotation, in order. The distinct ids
// are fetched once; only a failed fetch is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, annotations []models.Annotation) ([]Resolution, error) {
	ids := ReferencedIDs(annotations)
	var places []models.Place
	if len(ids) > 0 {
		metrics.XrefBatchSize.Observe(float64(len(ids)))
		var err error
		places, err = r.fetcher.FetchPlacesByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch referenced places: %w", err)
		}
	}
	names := ResolvePlaceNames(annotations, places)

	out := make([]Resolution, len(annotations))
	for i := range annotations {
		id, ok := ExtractPlaceID(&annotations[i])
		out[i] = Lookup(id, ok, names)
		metrics.XrefResolutions.WithLabelValues(out[i].State.String()).Inc()
	}
	return out, nil
}
