// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package catalog

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/models"
)

// FilterMode is the active way of selecting places.
type FilterMode int

const (
	// ModeBrowse applies category and favorites filters.
	ModeBrowse FilterMode = iota
	// ModeSearch applies the free-text search only. Search replaces the other
	// filters instead of intersecting with them.
	ModeSearch
	// ModeNearMe applies the radius filter on top of the browse filters.
	ModeNearMe
)

func (m FilterMode) String() string {
	switch m {
	case ModeBrowse:
		return "browse"
	case ModeSearch:
		return "search"
	case ModeNearMe:
		return "near_me"
	default:
		return "unknown"
	}
}

// Radius bounds for near-me filtering, in kilometers.
const (
	MinRadiusKm     = 1.0
	MaxRadiusKm     = 10.0
	DefaultRadiusKm = 10.0
)

// ErrNoLocation is returned when near-me mode is requested without a usable location.
var ErrNoLocation = errors.New("near-me filtering needs a valid user location")

// View is the filter state of one map view. It is an immutable value: every
// transition returns a new View.
type View struct {
	mode       FilterMode
	categories []string
	favorites  bool
	search     string
	location   *geo.Coordinates
	radiusKm   float64
}

// NewView returns the initial browse state.
func NewView() View {
	return View{mode: ModeBrowse, radiusKm: DefaultRadiusKm}
}

// Mode returns the active mode.
func (v View) Mode() FilterMode { return v.mode }

// Categories returns the selected categories, sorted.
func (v View) Categories() []string { return append([]string(nil), v.categories...) }

// SearchText returns the stored search text.
func (v View) SearchText() string { return v.search }

// RadiusKm returns the near-me radius.
func (v View) RadiusKm() float64 { return v.radiusKm }

// FavoritesOnly reports whether the favorites filter is on.
func (v View) FavoritesOnly() bool { return v.favorites }

// Location returns the user location, if known.
func (v View) Location() (geo.Coordinates, bool) {
	if v.location == nil {
		return geo.Coordinates{}, false
	}
	return *v.location, true
}

// ToggleCategory adds or removes cat and returns to browse mode, clearing the
// search text and the near-me filter.
func (v View) ToggleCategory(cat string) View {
	cat = strings.TrimSpace(cat)
	next := v.clone()
	next.mode = ModeBrowse
	next.search = ""
	if cat == "" {
		return next
	}
	i := sort.SearchStrings(next.categories, cat)
	if i < len(next.categories) && next.categories[i] == cat {
		next.categories = append(next.categories[:i], next.categories[i+1:]...)
	} else {
		next.categories = append(next.categories, "")
		copy(next.categories[i+1:], next.categories[i:])
		next.categories[i] = cat
	}
	return next
}

// WithCategories replaces the selected categories without changing mode.
func (v View) WithCategories(cats []string) View {
	next := v.clone()
	next.categories = next.categories[:0]
	seen := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		next.categories = append(next.categories, c)
	}
	sort.Strings(next.categories)
	return next
}

// SetSearch enters search mode for non-blank text, leaving near-me mode.
// Blank text returns to browse mode.
func (v View) SetSearch(text string) View {
	next := v.clone()
	if strings.TrimSpace(text) == "" {
		next.search = ""
		next.mode = ModeBrowse
		return next
	}
	next.search = text
	next.mode = ModeSearch
	return next
}

// EnableNearMe enters near-me mode around loc, clearing the search text.
// A non-positive radius keeps the current one.
func (v View) EnableNearMe(loc geo.Coordinates, radiusKm float64) (View, error) {
	if !loc.Valid() {
		return v, ErrNoLocation
	}
	next := v.clone()
	next.location = &loc
	next.search = ""
	next.mode = ModeNearMe
	if radiusKm > 0 {
		next.radiusKm = clampRadius(radiusKm)
	}
	return next, nil
}

// DisableNearMe leaves near-me mode.
func (v View) DisableNearMe() View {
	next := v.clone()
	if next.mode == ModeNearMe {
		next.mode = ModeBrowse
	}
	return next
}

// SetRadius changes the radius, clamped to [MinRadiusKm, MaxRadiusKm].
func (v View) SetRadius(km float64) View {
	next := v.clone()
	next.radiusKm = clampRadius(km)
	return next
}

// ToggleFavorites flips the favorites filter.
func (v View) ToggleFavorites() View {
	next := v.clone()
	next.favorites = !next.favorites
	return next
}

// ResetFilters clears categories, near-me and favorites. The search text is kept
// and search mode stays active if it was.
func (v View) ResetFilters() View {
	next := v.clone()
	next.categories = nil
	next.favorites = false
	next.radiusKm = DefaultRadiusKm
	if next.mode == ModeNearMe {
		next.mode = ModeBrowse
	}
	return next
}

// Reset returns to the initial state. The known user location survives.
func (v View) Reset() View {
	next := NewView()
	next.location = v.location
	return next
}

// Criteria derives the filter criteria for browse and near-me modes.
func (v View) Criteria() Criteria {
	c := Criteria{
		SelectedCategories: v.Categories(),
		ShowOnlyFavorites:  v.favorites,
		RadiusKm:           v.radiusKm,
		SearchText:         v.search,
	}
	if v.mode == ModeNearMe && v.location != nil {
		loc := *v.location
		c.NearMe = true
		c.UserLocation = &loc
	}
	return c
}

// Apply selects the visible places for this view.
func (v View) Apply(places []models.Place) []models.Place {
	if v.mode == ModeSearch {
		return SearchPlaces(places, v.search)
	}
	return FilterPlaces(places, v.Criteria())
}

func (v View) clone() View {
	next := v
	next.categories = append([]string(nil), v.categories...)
	return next
}

func clampRadius(km float64) float64 {
	if math.IsNaN(km) {
		return DefaultRadiusKm
	}
	return math.Min(MaxRadiusKm, math.Max(MinRadiusKm, km))
}
