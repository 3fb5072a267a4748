// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package catalog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/metrics"
	"github.com/tomtom215/mythmap/internal/models"
)

// Generation stamps a place fetch. Only the most recently started fetch may
// commit its result.
type Generation uint64

// Snapshot is an immutable view of the committed places.
type Snapshot struct {
	Places     []models.Place
	Categories []string
	Generation Generation
	FetchedAt  time.Time

	grid  *geo.SpatialGrid
	index map[models.ID]int
}

// Store holds the current place snapshot. Readers never block each other and
// never observe a partially built snapshot.
type Store struct {
	mu         sync.RWMutex
	snap       *Snapshot
	issued     atomic.Uint64
	gridCellKm float64
	now        func() time.Time
}

// NewStore creates an empty store. gridCellKm sizes the spatial grid used to
// accelerate radius filtering.
func NewStore(gridCellKm float64) *Store {
	return &Store{
		snap:       &Snapshot{Places: []models.Place{}, Categories: []string{}},
		gridCellKm: gridCellKm,
		now:        time.Now,
	}
}

// Begin stamps a new fetch. Any fetch begun earlier is superseded.
func (s *Store) Begin() Generation {
	return Generation(s.issued.Add(1))
}

// Latest returns the most recently issued generation.
func (s *Store) Latest() Generation {
	return Generation(s.issued.Load())
}

// Commit installs places fetched under gen. Results of superseded fetches
// are discarded and Commit reports false.
func (s *Store) Commit(gen Generation, places []models.Place) bool {
	if gen != s.Latest() {
		metrics.RecordCatalogCommit(uint64(gen), len(places), false)
		return false
	}
	snap := s.build(gen, places)

	s.mu.Lock()
	defer s.mu.Unlock()
	// a newer fetch may have begun while the snapshot was being built
	if gen != s.Latest() || gen <= s.snap.Generation {
		metrics.RecordCatalogCommit(uint64(gen), len(places), false)
		return false
	}
	s.snap = snap
	metrics.RecordCatalogCommit(uint64(gen), len(snap.Places), true)
	return true
}

func (s *Store) build(gen Generation, places []models.Place) *Snapshot {
	owned := append([]models.Place(nil), places...)
	if owned == nil {
		owned = []models.Place{}
	}
	snap := &Snapshot{
		Places:     owned,
		Categories: ExtractCategories(owned),
		Generation: gen,
		FetchedAt:  s.now(),
		grid:       geo.NewSpatialGrid(s.gridCellKm),
		index:      make(map[models.ID]int, len(owned)),
	}
	unlocated := 0
	for i := range owned {
		p := &owned[i]
		if _, dup := snap.index[p.ID]; !dup {
			snap.index[p.ID] = i
		}
		if c, ok := p.Coordinates(); ok {
			snap.grid.Insert(string(p.ID), c)
		} else {
			unlocated++
		}
	}
	if unlocated > 0 {
		logging.Debug().
			Uint64("generation", uint64(gen)).
			Int("unlocated", unlocated).
			Msg("Places without a parsable geometry are excluded from radius filtering")
	}
	// duplicate ids would make grid membership ambiguous
	if len(snap.index) != len(owned) {
		snap.grid = nil
	}
	return snap
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Get returns the place with id.
func (s *Store) Get(id models.ID) (models.Place, bool) {
	snap := s.Snapshot()
	i, ok := snap.index[id]
	if !ok {
		return models.Place{}, false
	}
	return snap.Places[i], true
}

// Filter applies c to the current snapshot.
func (s *Store) Filter(c Criteria) []models.Place {
	start := time.Now()
	snap := s.Snapshot()
	var idx radiusIndex
	if snap.grid != nil {
		idx = snap.grid
	}
	out := filterPlaces(snap.Places, &c, idx)
	mode := ModeBrowse
	if c.radiusActive() {
		mode = ModeNearMe
	}
	metrics.FilterDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	return out
}

// Search runs SearchPlaces over the current snapshot.
func (s *Store) Search(text string) []models.Place {
	start := time.Now()
	out := SearchPlaces(s.Snapshot().Places, text)
	metrics.FilterDuration.WithLabelValues(ModeSearch.String()).Observe(time.Since(start).Seconds())
	return out
}

// ApplyView selects places for v over the current snapshot.
func (s *Store) ApplyView(v View) []models.Place {
	if v.Mode() == ModeSearch {
		return s.Search(v.SearchText())
	}
	return s.Filter(v.Criteria())
}

// SetFavorite optimistically updates the favorite flag of one place. The
// snapshot is copied, never modified in place. It reports whether the place
// was found.
func (s *Store) SetFavorite(id models.ID, favorite bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.snap.index[id]
	if !ok {
		return false
	}
	next := *s.snap
	next.Places = append([]models.Place(nil), s.snap.Places...)
	next.Places[i].Favorite = favorite
	s.snap = &next
	return true
}
