// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamps enabled by default")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	if !ValidLevel("Warn") {
		t.Error("expected Warn to be valid")
	}
	if ValidLevel("loud") {
		t.Error("expected loud to be invalid")
	}
}

// The tests below swap the global logger and therefore do not run in parallel.

func TestCtxAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id in %s", out)
	}
	if !strings.Contains(out, `"correlation_id":"corr-1"`) {
		t.Errorf("missing correlation_id in %s", out)
	}
}

func TestGenerateIDs(t *testing.T) {
	t.Parallel()

	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("correlation id length = %d, want 8", got)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("expected unique request ids")
	}
}

func TestAuditSanitizes(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	Audit(context.Background(), AuditEvent{
		Action:   "login",
		Username: "eve\n{\"forged\":true}",
		Success:  false,
	})

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected exactly one log line, got %q", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("failed audit should log at warn: %s", out)
	}
}

func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	if got := SanitizeToken("abcdef123"); got != "abcd****" {
		t.Errorf("SanitizeToken = %q", got)
	}
	if got := SanitizeToken("ab"); got != "****" {
		t.Errorf("SanitizeToken short = %q", got)
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	logger := NewSlogLogger().WithGroup("svc").With("name", "catalog")
	logger.Warn("restarting", "attempt", 2)

	out := buf.String()
	for _, want := range []string{`"svc.name":"catalog"`, `"svc.attempt":2`, `"message":"restarting"`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	if NewSlogHandler().Enabled(context.Background(), slog.LevelDebug-4) && zerolog.GlobalLevel() > zerolog.TraceLevel {
		t.Error("trace records should be disabled above trace level")
	}
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	adapter := NewWatermillAdapter().With(watermill.LogFields{"handler": "catalog-invalidation"})
	adapter.Error("handler failed", errors.New("boom"), watermill.LogFields{"topic": "catalog.invalidated"})

	out := buf.String()
	for _, want := range []string{
		`"component":"events"`,
		`"handler":"catalog-invalidation"`,
		`"topic":"catalog.invalidated"`,
		`"error":"boom"`,
		`"message":"handler failed"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
