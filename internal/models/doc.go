// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package models defines the records exchanged with the myths API and served by
// the gateway: places (GeoJSON features), notes and comments (annotations) and
// users.
//
// JSON decoding is lenient where the upstream is inconsistent: identifiers may
// arrive as numbers or strings, and an annotation's place may be a scalar id or
// an embedded object.
package models
