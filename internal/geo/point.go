// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package geo provides point parsing, great-circle distance and a spatial grid
// for place geometry.
//
// Geometry reaches the gateway in two encodings: WKT text ("POINT (lon lat)",
// optionally prefixed with an SRID as GeoDjango emits it) and GeoJSON Point
// objects. Both put longitude first. ParsePoint normalizes either into
// Coordinates and reports false for anything it cannot read; it never panics.
package geo

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lon" validate:"longitude"`
}

// Valid reports whether c is a finite position inside the WGS84 ranges.
func (c Coordinates) Valid() bool {
	return finite(c.Latitude) && finite(c.Longitude) &&
		c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// GeoJSONPoint is the GeoJSON Point geometry object.
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewGeoJSONPoint encodes c as a GeoJSON Point.
func NewGeoJSONPoint(c Coordinates) GeoJSONPoint {
	return GeoJSONPoint{Type: "Point", Coordinates: []float64{c.Longitude, c.Latitude}}
}

var wktPoint = regexp.MustCompile(`(?i)^(?:SRID=\d+;)?\s*POINT\s*\(\s*(\S+)\s+(\S+)\s*\)$`)

// ParsePoint converts raw geometry into Coordinates.
//
// Accepted inputs are a WKT string, a GeoJSON Point (as GeoJSONPoint, a decoded
// map, or raw JSON bytes) and a JSON string holding WKT. Everything else,
// including NaN or out-of-range components, yields false.
func ParsePoint(raw any) (Coordinates, bool) {
	switch v := raw.(type) {
	case nil:
		return Coordinates{}, false
	case string:
		return parseText(v)
	case json.RawMessage:
		return parseJSON(v)
	case []byte:
		return parseJSON(v)
	case GeoJSONPoint:
		return fromGeoJSON(v.Type, v.Coordinates)
	case *GeoJSONPoint:
		if v == nil {
			return Coordinates{}, false
		}
		return fromGeoJSON(v.Type, v.Coordinates)
	case map[string]any:
		return fromMap(v)
	case Coordinates:
		return v, v.Valid()
	default:
		return Coordinates{}, false
	}
}

// ParseWKT parses "POINT (lon lat)".
func ParseWKT(s string) (Coordinates, bool) {
	m := wktPoint.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinates{}, false
	}
	c := Coordinates{Latitude: lat, Longitude: lon}
	return c, c.Valid()
}

// FormatWKT renders c as "POINT (lon lat)". ParseWKT(FormatWKT(c)) returns c exactly.
func FormatWKT(c Coordinates) string {
	return "POINT (" + strconv.FormatFloat(c.Longitude, 'g', -1, 64) + " " +
		strconv.FormatFloat(c.Latitude, 'g', -1, 64) + ")"
}

func parseText(s string) (Coordinates, bool) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "{") {
		return parseJSON([]byte(t))
	}
	return ParseWKT(t)
}

func parseJSON(b []byte) (Coordinates, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Coordinates{}, false
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Coordinates{}, false
		}
		return ParseWKT(s)
	case '{':
		var p struct {
			Type        string `json:"type"`
			Coordinates []any  `json:"coordinates"`
		}
		if err := json.Unmarshal(b, &p); err != nil {
			return Coordinates{}, false
		}
		return fromAnyPair(p.Type, p.Coordinates)
	default:
		return Coordinates{}, false
	}
}

func fromMap(m map[string]any) (Coordinates, bool) {
	typ, _ := m["type"].(string)
	switch coords := m["coordinates"].(type) {
	case []any:
		return fromAnyPair(typ, coords)
	case []float64:
		return fromGeoJSON(typ, coords)
	default:
		return Coordinates{}, false
	}
}

func fromAnyPair(typ string, coords []any) (Coordinates, bool) {
	if len(coords) < 2 {
		return Coordinates{}, false
	}
	pair := make([]float64, 2)
	for i := range pair {
		f, ok := toFloat(coords[i])
		if !ok {
			return Coordinates{}, false
		}
		pair[i] = f
	}
	return fromGeoJSON(typ, pair)
}

func fromGeoJSON(typ string, coords []float64) (Coordinates, bool) {
	if typ != "Point" || len(coords) < 2 {
		return Coordinates{}, false
	}
	c := Coordinates{Latitude: coords[1], Longitude: coords[0]}
	return c, c.Valid()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
