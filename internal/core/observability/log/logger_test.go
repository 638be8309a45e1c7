package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warning": LevelWarn, " error ": LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "warn", LevelWarn.String())
}

func TestLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewWithCore(core).With(String("role", "server"))

	l.Debug("hidden")
	l.Info("tick", Int32("tick", 7), Duration("took", time.Millisecond), Bool("full", true))
	l.Warn("decode", Error(errors.New("short")))

	assert.False(t, l.Enabled(LevelDebug))
	assert.True(t, l.Enabled(LevelWarn))

	entries := logs.All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "server", ctx["role"])
	assert.Equal(t, int32(7), ctx["tick"])
	assert.Equal(t, true, ctx["full"])
	assert.Equal(t, "short", entries[1].ContextMap()["error"])
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("nothing")
	assert.False(t, l.Enabled(LevelError))
}
