package logger_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	testCases := []struct {
		name       string
		level      string
		debugShown bool
		infoShown  bool
	}{
		{name: "debug level", level: "debug", debugShown: true, infoShown: true},
		{name: "info level", level: "info", debugShown: false, infoShown: true},
		{name: "upper case", level: "WARN", debugShown: false, infoShown: false},
		{name: "invalid falls back to info", level: "chatty", debugShown: false, infoShown: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &logger.TestLogBuffer{}
			l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: tc.level}, buf)
			require.NoError(t, err)
			require.NotNil(t, l)

			l.Debug("debug message")
			l.Info("info message")

			assert.Equal(t, tc.debugShown, strings.Contains(buf.String(), "debug message"))
			assert.Equal(t, tc.infoShown, strings.Contains(buf.String(), "info message"))
			assert.Same(t, l, slog.Default(), "Setup should install the logger as default")
		})
	}
}

func TestSetupWritesJSON(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	buf := &logger.TestLogBuffer{}
	l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "info"}, buf)
	require.NoError(t, err)

	l.Info("task completed", "task_id", "t1", "fragments", 2)

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "task completed", entries[0]["msg"])
	assert.Equal(t, "t1", entries[0]["task_id"])
	assert.Equal(t, float64(2), entries[0]["fragments"])
}

func TestContextLogger(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := logger.WithLogger(context.Background(), l)
	assert.Same(t, l, logger.FromContext(ctx))

	assert.Same(t, slog.Default(), logger.FromContext(context.Background()),
		"missing logger should fall back to the default")
}

func TestFromContextOrDefault(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
	stored := slog.New(slog.NewJSONHandler(io.Discard, nil))

	tests := []struct {
		name     string
		ctx      context.Context
		expected *slog.Logger
	}{
		{name: "nil context", ctx: nil, expected: fallback},
		{name: "context without logger", ctx: context.Background(), expected: fallback},
		{name: "context with logger", ctx: logger.WithLogger(context.Background(), stored), expected: stored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.expected, logger.FromContextOrDefault(tt.ctx, fallback))
		})
	}
}
