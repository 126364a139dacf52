package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curb360/offersite/internal/app"
	jobmetrics "github.com/curb360/offersite/internal/jobs"
	"github.com/curb360/offersite/jobs"
	_ "github.com/curb360/offersite/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}

func TestRunRequiresRedis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(context.Background(), &app.Config{}, logger)
	assert.ErrorContains(t, err, "REDIS_ADDR")
}

func TestMetricsRouterServesJobMetrics(t *testing.T) {
	registry := newRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	require.Error(t, metrics.Track(jobs.TaskOfferExpire).End(assert.AnError))

	srv := httptest.NewServer(metricsRouter(registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `offersite_jobs_failures_total{job="offer:expire"} 1`)
	assert.Contains(t, string(body), "go_goroutines")

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
