// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package geo

import (
	"math"
	"sync"
)

// SpatialGrid buckets points into fixed-size lat/lon cells so radius queries
// only visit the cells around the query point instead of every point.
//
// Time Complexity:
//   - Insert / Remove: O(1) amortized
//   - QueryRadius: O(k) where k = points in the visited cells
//
// QueryRadius never misses a point: cells are widened by the latitude-dependent
// longitude span, wrap across the antimeridian, and fall back to a full scan
// when the circle touches a pole.
type SpatialGrid struct {
	mu      sync.RWMutex
	cellDeg float64
	cells   map[cellKey][]gridEntry
	entries map[string]gridEntry
}

type cellKey struct {
	X, Y int
}

type gridEntry struct {
	id  string
	pos Coordinates
	key cellKey
}

// NewSpatialGrid creates a grid with cells of roughly cellSizeKm on a side.
// Non-positive sizes default to 5 km.
func NewSpatialGrid(cellSizeKm float64) *SpatialGrid {
	if cellSizeKm <= 0 || !finite(cellSizeKm) {
		cellSizeKm = 5
	}
	return &SpatialGrid{
		cellDeg: cellSizeKm * degPerKm,
		cells:   make(map[cellKey][]gridEntry),
		entries: make(map[string]gridEntry),
	}
}

func (g *SpatialGrid) keyFor(c Coordinates) cellKey {
	return cellKey{
		X: int(math.Floor(c.Longitude / g.cellDeg)),
		Y: int(math.Floor(c.Latitude / g.cellDeg)),
	}
}

// Insert adds or moves the point id. Invalid coordinates are ignored and
// report false.
func (g *SpatialGrid) Insert(id string, c Coordinates) bool {
	if !c.Valid() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.entries[id]; ok {
		g.removeLocked(old)
	}
	e := gridEntry{id: id, pos: c, key: g.keyFor(c)}
	g.cells[e.key] = append(g.cells[e.key], e)
	g.entries[id] = e
	return true
}

// Remove deletes id from the grid.
func (g *SpatialGrid) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[id]
	if !ok {
		return false
	}
	g.removeLocked(e)
	delete(g.entries, id)
	return true
}

func (g *SpatialGrid) removeLocked(e gridEntry) {
	cell := g.cells[e.key]
	for i := range cell {
		if cell[i].id == e.id {
			cell[i] = cell[len(cell)-1]
			cell = cell[:len(cell)-1]
			break
		}
	}
	if len(cell) == 0 {
		delete(g.cells, e.key)
		return
	}
	g.cells[e.key] = cell
}

// Len returns the number of points in the grid.
func (g *SpatialGrid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// QueryRadius returns the set of ids whose haversine distance to center is at
// most radiusKm.
func (g *SpatialGrid) QueryRadius(center Coordinates, radiusKm float64) map[string]struct{} {
	out := make(map[string]struct{})
	if !center.Valid() || radiusKm < 0 || math.IsNaN(radiusKm) {
		return out
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	match := func(e gridEntry) {
		if HaversineKm(center, e.pos) <= radiusKm {
			out[e.id] = struct{}{}
		}
	}

	delta := radiusKm / EarthRadiusKm
	dLat := radiusKm * degPerKm
	phi := toRad(center.Latitude)
	ratio := math.Sin(delta) / math.Cos(phi)
	if delta >= math.Pi/2 || math.Abs(center.Latitude)+dLat >= 90 || ratio >= 1 {
		for _, e := range g.entries {
			match(e)
		}
		return out
	}
	dLon := math.Asin(ratio) * 180 / math.Pi

	// one cell of slack on each side absorbs floating point error at cell edges
	minY := int(math.Floor((center.Latitude-dLat)/g.cellDeg)) - 1
	maxY := int(math.Floor((center.Latitude+dLat)/g.cellDeg)) + 1
	for _, span := range lonSpans(center.Longitude-dLon, center.Longitude+dLon) {
		minX := int(math.Floor(span[0]/g.cellDeg)) - 1
		maxX := int(math.Floor(span[1]/g.cellDeg)) + 1
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				for _, e := range g.cells[cellKey{X: x, Y: y}] {
					match(e)
				}
			}
		}
	}
	return out
}

// lonSpans splits [lo, hi] into at most two ranges inside [-180, 180].
func lonSpans(lo, hi float64) [][2]float64 {
	switch {
	case lo < -180:
		return [][2]float64{{-180, hi}, {lo + 360, 180}}
	case hi > 180:
		return [][2]float64{{lo, 180}, {-180, hi - 360}}
	default:
		return [][2]float64{{lo, hi}}
	}
}
