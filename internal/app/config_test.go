package app

import (
	"bytes"
	"log/slog"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curb360/offersite/internal/offer"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, time.Duration(0), cfg.AppWriteTimeout)
	assert.Equal(t, "America/Los_Angeles", cfg.OfferTimezone)
	assert.Equal(t, time.Second, cfg.OfferTickInterval)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, ":9091", cfg.WorkerMetricsAddr)
	assert.False(t, cfg.IsProduction())

	d := cfg.Deadline()
	assert.Equal(t, time.December, d.Month)
	assert.Equal(t, 31, d.Day)
	assert.Equal(t, "America/Los_Angeles", d.Zone.String())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("OFFER_TIMEZONE", "Asia/Tokyo")
	t.Setenv("OFFER_DEADLINE", "06-30T18:00:00")
	t.Setenv("OFFER_YEAR", "2027")
	t.Setenv("OFFER_PREVIEW", "expired")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, PreviewExpired, cfg.OfferPreview)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 2027, cfg.OfferYearAt(time.Now()))

	instant, err := cfg.Deadline().Instant(2027)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, time.June, 30, 9, 0, 0, 0, time.UTC), instant.UTC())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown zone":   {"OFFER_TIMEZONE": "Mars/Olympus_Mons"},
		"bad deadline":   {"OFFER_DEADLINE": "31-12T23:59:59"},
		"bad preview":    {"OFFER_PREVIEW": "sometimes"},
		"bad log format": {"LOG_FORMAT": "xml"},
		"zero rate":      {"RATE_LIMIT_PER_MINUTE": "0"},
		"tiny tick":      {"OFFER_TICK_INTERVAL": "1us"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestUnknownZoneIsReported(t *testing.T) {
	cfg := &Config{
		AppEnv: "development", AppAddr: ":0", LogFormat: "pretty", LogLevel: "info",
		OfferTimezone: "Nowhere/Special", OfferDeadline: "12-31T23:59:59",
		OfferTickInterval: time.Second, RateLimitPerMinute: 1,
	}
	assert.ErrorIs(t, cfg.Validate(), offer.ErrUnknownZone)
}

func TestOfferYearFollowsOfferZone(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	// 03:00 UTC on New Year's Day is still the previous evening in Los Angeles.
	now := time.Date(2026, time.January, 1, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, 2025, cfg.OfferYearAt(now))
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf).Info("hidden")
	assert.Zero(t, buf.Len())

	newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf).Warn("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger(nil, &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "")
	assert.False(t, InTestMode())
}
