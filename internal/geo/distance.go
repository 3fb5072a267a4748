// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package geo

import (
	"math"
	"strconv"
)

// EarthRadiusKm is the mean Earth radius. Every distance in the module derives from it.
const EarthRadiusKm = 6371.0

// EarthRadiusMeters is EarthRadiusKm in meters.
const EarthRadiusMeters = EarthRadiusKm * 1000

// degPerKm is the arc length of one kilometer along a meridian, in degrees.
const degPerKm = 180 / (math.Pi * EarthRadiusKm)

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Coordinates) float64 {
	return EarthRadiusKm * centralAngle(a, b)
}

// HaversineMeters returns the great-circle distance between a and b in meters.
func HaversineMeters(a, b Coordinates) float64 {
	return EarthRadiusMeters * centralAngle(a, b)
}

// centralAngle returns the angle subtended at the Earth's center, in radians.
// Points are put in a canonical order first so d(a,b) and d(b,a) are bit-identical.
func centralAngle(a, b Coordinates) float64 {
	if a == b {
		return 0
	}
	if less(b, a) {
		a, b = b, a
	}
	phi1 := toRad(a.Latitude)
	phi2 := toRad(b.Latitude)
	dPhi := toRad(b.Latitude - a.Latitude)
	dLambda := toRad(b.Longitude - a.Longitude)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	// rounding can push h a hair outside [0,1] for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func less(a, b Coordinates) bool {
	if a.Latitude != b.Latitude {
		return a.Latitude < b.Latitude
	}
	return a.Longitude < b.Longitude
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// FormatDistance renders a distance for display: whole meters below one
// kilometer ("850 м"), kilometers with two decimals otherwise ("2.35 км").
func FormatDistance(meters float64) string {
	if !finite(meters) || meters < 0 {
		return ""
	}
	if m := math.Round(meters); m < 1000 {
		return strconv.FormatFloat(m, 'f', 0, 64) + " м"
	}
	return strconv.FormatFloat(meters/1000, 'f', 2, 64) + " км"
}
