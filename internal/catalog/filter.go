// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package catalog

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/models"
)

// Criteria selects the visible subset of places in browse and near-me modes.
// The zero value selects everything.
type Criteria struct {
	// SelectedCategories restricts to places carrying any of these tags.
	SelectedCategories []string
	// NearMe enables radius filtering around UserLocation.
	NearMe bool
	// RadiusKm is the inclusive radius used when NearMe is set.
	RadiusKm float64
	// UserLocation is required for radius filtering to apply.
	UserLocation *geo.Coordinates
	// ShowOnlyFavorites keeps only places favorited by the requesting user.
	ShowOnlyFavorites bool
	// SearchText is carried for callers that keep it alongside the filters.
	// FilterPlaces ignores it; use SearchPlaces.
	SearchText string
}

// IsEmpty reports whether c filters nothing out.
func (c *Criteria) IsEmpty() bool {
	return len(c.SelectedCategories) == 0 && !c.radiusActive() && !c.ShowOnlyFavorites
}

func (c *Criteria) radiusActive() bool {
	return c.NearMe && c.UserLocation != nil
}

// radiusIndex answers radius queries over the same places being filtered.
type radiusIndex interface {
	QueryRadius(center geo.Coordinates, radiusKm float64) map[string]struct{}
}

// FilterPlaces applies, in order, the category, radius and favorites stages
// of c. Each stage only narrows the previous result. Input order is kept and
// the input slice is never modified.
//
// Places with unparsable geometry are dropped by the radius stage only.
func FilterPlaces(places []models.Place, c Criteria) []models.Place {
	return filterPlaces(places, &c, nil)
}

func filterPlaces(places []models.Place, c *Criteria, idx radiusIndex) []models.Place {
	out := make([]models.Place, 0, len(places))
	out = append(out, places...)

	if len(c.SelectedCategories) > 0 {
		want := make(map[string]struct{}, len(c.SelectedCategories))
		for _, cat := range c.SelectedCategories {
			want[cat] = struct{}{}
		}
		out = keep(out, func(p *models.Place) bool {
			for _, tag := range ParseCategories(p.Categories) {
				if _, ok := want[tag]; ok {
					return true
				}
			}
			return false
		})
	}

	if c.radiusActive() {
		center := *c.UserLocation
		if idx != nil {
			within := idx.QueryRadius(center, c.RadiusKm)
			out = keep(out, func(p *models.Place) bool {
				_, ok := within[string(p.ID)]
				return ok
			})
		} else {
			out = keep(out, func(p *models.Place) bool {
				pos, ok := p.Coordinates()
				return ok && geo.HaversineKm(center, pos) <= c.RadiusKm
			})
		}
	}

	if c.ShowOnlyFavorites {
		out = keep(out, func(p *models.Place) bool { return p.Favorite })
	}
	return out
}

// keep filters s in place.
func keep(s []models.Place, pred func(*models.Place) bool) []models.Place {
	n := 0
	for i := range s {
		if pred(&s[i]) {
			s[n] = s[i]
			n++
		}
	}
	for i := n; i < len(s); i++ {
		s[i] = models.Place{}
	}
	return s[:n]
}

// SearchPlaces returns places whose name or categories field contains text,
// ignoring case. Blank text means no search was performed and yields nil; a
// search without matches yields an empty, non-nil slice.
func SearchPlaces(places []models.Place, text string) []models.Place {
	q := strings.TrimSpace(text)
	if q == "" {
		return nil
	}
	fold := cases.Fold()
	needle := fold.String(q)

	out := make([]models.Place, 0)
	for i := range places {
		p := &places[i]
		if strings.Contains(fold.String(p.Name), needle) ||
			strings.Contains(fold.String(p.Categories), needle) {
			out = append(out, *p)
		}
	}
	return out
}
