// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built once and shared; it caches struct
// metadata, so request types should be validated through ValidateStruct
// rather than through ad hoc validator instances.
//
// # Field names
//
// Errors report the json tag name of a field, or its query tag for structs
// bound from URL parameters, so messages match what the client sent:
//
//	type NearestQuery struct {
//	    Latitude  float64 `query:"lat" validate:"latitude"`
//	    Longitude float64 `query:"lon" validate:"longitude"`
//	    RadiusKm  float64 `query:"radius_km" validate:"omitempty,gt=0,lte=50"`
//	}
//
// # Custom tags
//
//   - object_id: an upstream record id, either a positive integer or an
//     opaque token safe to use as a URL path segment
//   - categories: a comma separated list of printable tags, each at most
//     64 characters
//
// # Errors
//
// ValidateStruct returns nil or a *RequestValidationError. ToAPIError turns
// it into the VALIDATION_ERROR envelope error; a single failure carries its
// field and tag in Details, several failures are listed under "fields".
package validation
