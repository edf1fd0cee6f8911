package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"strings"
	"testing"

	"github.com/amp-labs/fsm/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))

		out = append(out, entry)
	}

	return out
}

func TestLogger(t *testing.T) { //nolint:paralleltest // Test modifies the global slog default
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		Output:    &buf,
	})

	Get().Info("default subsystem")
	Get(WithSubsystem(t.Context(), "overridden")).Info("overridden subsystem")
	Get(With(t.Context(), "machine", "door")).Info("with values")
	Get(WithMuted(t.Context(), true)).Info("never written")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "test", lines[0]["subsystem"])
	assert.Equal(t, "overridden", lines[1]["subsystem"])
	assert.Equal(t, "door", lines[2]["machine"])
}

func TestLegacy(t *testing.T) { //nolint:paralleltest // Test modifies the global log default
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem:   "test",
		JSON:        true,
		MinLevel:    slog.LevelDebug,
		LegacyLevel: slog.LevelWarn,
		Output:      &buf,
	})

	log.Println("legacy line")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "legacy line", lines[0]["msg"])
}

func TestAnnotatedErrorsAreExpanded(t *testing.T) { //nolint:paralleltest // Test modifies the global slog default
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{JSON: true, Output: &buf})

	err := AnnotateError(context.Canceled, "state", "closed")
	Get().Error("failed", "error", err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "closed", lines[0]["state"])
	assert.Equal(t, "context canceled", lines[0]["error"])
}

func TestExtraHandlers(t *testing.T) { //nolint:paralleltest // Test modifies the global slog default
	var (
		main  bytes.Buffer
		extra bytes.Buffer
	)

	ConfigureLoggingWithOptions(Options{
		JSON:   true,
		Output: &main,
		Extra: []slog.Handler{
			slog.NewJSONHandler(&extra, &slog.HandlerOptions{Level: slog.LevelWarn}),
		},
	})

	Get().Info("main only")
	Get().Warn("both")

	assert.Len(t, decodeLines(t, &main), 2)

	extraLines := decodeLines(t, &extra)
	require.Len(t, extraLines, 1)
	assert.Equal(t, "both", extraLines[0]["msg"])
}

func TestWith(t *testing.T) {
	t.Parallel()

	ctx := With(t.Context(), "a", 1)
	ctx = With(ctx, "b", 2)

	assert.Equal(t, []any{"a", 1, "b", 2}, getValues(ctx))
	assert.Same(t, ctx, With(ctx))
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig(envutil.WithEnvironment(map[string]string{}))
		require.NoError(t, err)

		assert.Equal(t, Config{Level: slog.LevelInfo, LegacyLevel: slog.LevelInfo, Output: "stdout"}, cfg)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig(envutil.WithEnvironment(map[string]string{
			"LOG_JSON":   "true",
			"LOG_LEVEL":  "debug",
			"LOG_OUTPUT": "stderr",
		}))
		require.NoError(t, err)

		opts, err := cfg.Options("fsm")
		require.NoError(t, err)

		assert.True(t, opts.JSON)
		assert.Equal(t, slog.LevelDebug, opts.MinLevel)
		assert.Equal(t, "fsm", opts.Subsystem)
	})

	t.Run("invalid output", func(t *testing.T) {
		t.Parallel()

		_, err := Config{Output: "syslog"}.Options("fsm")
		require.ErrorIs(t, err, ErrInvalidLogOutput)
	})
}
