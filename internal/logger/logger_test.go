package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextLogger checks that named loggers travel through the context.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := New(zapcore.DebugLevel, zapcore.AddSync(&buf))
	ctx := WithKV(WithName(toContext(context.Background(), l), "engine"), "flow_id", "line-1")

	InfoKV(ctx, "Cycle applied", "sequence", 7)

	out := buf.String()
	require.Contains(t, out, "engine")
	require.Contains(t, out, "Cycle applied")
	require.Contains(t, out, "line-1")

	// Without a logger in the context the global one is returned.
	require.Same(t, global, fromContext(context.Background()))
}
