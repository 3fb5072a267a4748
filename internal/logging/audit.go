// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package logging

import (
	"context"
	"strings"
	"unicode"
)

// AuditEvent describes a session or moderation action worth keeping in the log.
type AuditEvent struct {
	// Action is e.g. "login", "logout", "moderation.approve".
	Action   string
	Username string
	Target   string
	Success  bool
	Reason   string
}

// Audit writes e at info level (warn when unsuccessful) under the "audit" component.
func Audit(ctx context.Context, e AuditEvent) {
	l := Ctx(ctx)
	ev := l.Info()
	if !e.Success {
		ev = l.Warn()
	}
	ev = ev.Str("component", "audit").
		Str("action", e.Action).
		Bool("success", e.Success)
	if e.Username != "" {
		ev = ev.Str("username", SanitizeUsername(e.Username))
	}
	if e.Target != "" {
		ev = ev.Str("target", e.Target)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", truncate(e.Reason, 200))
	}
	ev.Msg("audit")
}

// SanitizeUsername strips control characters and caps the length at 64 runes
// so that user supplied names cannot forge log lines.
func SanitizeUsername(name string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return truncate(clean, 64)
}

// SanitizeToken keeps only the first four characters of a token.
func SanitizeToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
