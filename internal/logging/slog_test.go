package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, "warn")
	ctx := context.Background()

	log.Debug(ctx, "dbg")
	log.Info(ctx, "inf")
	log.Warn(ctx, "wrn", "reason", "revoked")
	log.Error(ctx, "err")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "WARN", first["level"])
	assert.Equal(t, "wrn", first["msg"])
	assert.Equal(t, "revoked", first["reason"])
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, "debug").With("module", "auth")

	log.Info(context.Background(), "login", "outcome", "ok")

	out := buf.String()
	for _, s := range []string{`"module":"auth"`, `"msg":"login"`, `"outcome":"ok"`} {
		assert.Contains(t, out, s)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNop_DoesNotPanic(t *testing.T) {
	var l Logger = Nop{}
	ctx := context.TODO()
	assert.NotPanics(t, func() {
		l.Debug(ctx, "x")
		l.Info(ctx, "x")
		l.Warn(ctx, "x")
		l.Error(ctx, "x")
		l.With("k", "v").Info(ctx, "x")
	})
}
