package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/generation"
	"github.com/phrazzld/scry-analyzer/internal/platform/logger"
	"github.com/phrazzld/scry-analyzer/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *application {
	t.Helper()

	log, _ := logger.NewTestLogger()
	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	collector.SetBuildInfo("test")

	return &application{
		config: &config.Config{
			Server: config.ServerConfig{Port: 0, LogLevel: "info"},
		},
		logger:  log,
		metrics: collector,
	}
}

func TestRouter_Healthz(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `analyzer_build_info{version="test"} 1`)
}

func TestRouter_UnknownRoute(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeOps_StopsOnCancel(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.serveOps(ctx, app.setupRouter())
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ops server did not stop after cancellation")
	}
}

func TestNewApplication_InvalidLLMConfig(t *testing.T) {
	log, _ := logger.NewTestLogger()
	cfg := &config.Config{
		LLM: config.LLMConfig{ModelName: "gemini-2.0-flash"},
	}

	app, err := newApplication(context.Background(), cfg, log)

	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	assert.Nil(t, app)
}
