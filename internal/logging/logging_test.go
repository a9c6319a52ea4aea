package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "warn", Format: FormatJSON}, &buf)

	l.Info().Msg("hidden")
	l.Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "v", entry["k"])
}

func TestNewLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	l := NewLogger(Config{Level: "nope"}, &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestNewLoggerWithPath(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "carbonfocus.log")
		res := NewLoggerWithPath(Config{Level: "info", Output: OutputFile, File: path})
		t.Cleanup(func() { _ = res.Close() })

		require.True(t, res.UsingFile)
		assert.False(t, res.FallbackUsed)
		res.Logger.Info().Msg("to file")
		require.NoError(t, res.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("empty file path falls back", func(t *testing.T) {
		res := NewLoggerWithPath(Config{Output: OutputFile})
		assert.True(t, res.FallbackUsed)
		assert.False(t, res.UsingFile)
		assert.NotEmpty(t, res.FallbackReason)
	})
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug"}, &buf)
	ctx := l.WithContext(context.Background())
	ctx = ContextWithTraceID(ctx, "trace-123")

	FromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), "trace-123")
	assert.Contains(t, buf.String(), "hello")
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })
	SetGlobal(NewLogger(Config{Level: "info"}, &buf))

	FromContext(context.Background()).Info().Msg("global")
	assert.Contains(t, buf.String(), "global")
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, TraceIDFromContext(ctx))

	generated := GetOrGenerateTraceID(ctx)
	assert.Len(t, generated, 26)

	ctx = ContextWithTraceID(ctx, generated)
	assert.Equal(t, generated, GetOrGenerateTraceID(ctx))
	assert.NotEqual(t, NewID(), NewID())
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	l := ComponentLogger(NewLogger(Config{}, &buf), "engine")
	l.Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"engine"`)
}
