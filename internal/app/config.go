package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/curb360/offersite/internal/offer"
)

const testModeEnv = "OFFERSITE_TEST_MODE"

// InTestMode reports whether the binaries should skip runtime side effects.
func InTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
}

// Preview modes pin the offer state instead of polling the clock.
const (
	PreviewOff     = ""
	PreviewActive  = "active"
	PreviewExpired = "expired"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development" validate:"oneof=development staging production"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s" validate:"min=0"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"0s" validate:"min=0"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s" validate:"min=0"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	RedisAddr    string        `envconfig:"REDIS_ADDR" default:""`
	PageCacheTTL time.Duration `envconfig:"PAGE_CACHE_TTL" default:"10m" validate:"min=0"`

	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	OfferTimezone     string        `envconfig:"OFFER_TIMEZONE" default:"America/Los_Angeles" validate:"required"`
	OfferDeadline     string        `envconfig:"OFFER_DEADLINE" default:"12-31T23:59:59" validate:"required"`
	OfferYear         int           `envconfig:"OFFER_YEAR" default:"0" validate:"min=0,max=9999"`
	OfferTickInterval time.Duration `envconfig:"OFFER_TICK_INTERVAL" default:"1s" validate:"min=1ms"`
	OfferPreview      string        `envconfig:"OFFER_PREVIEW" default:"" validate:"omitempty,oneof=active expired"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120" validate:"min=1"`

	deadline offer.Deadline
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and resolves the offer deadline.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	d, err := offer.ParseDeadline(c.OfferDeadline, c.OfferTimezone)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.deadline = d
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Deadline returns the offer deadline resolved by Validate.
func (c *Config) Deadline() offer.Deadline {
	return c.deadline
}

// OfferYearAt returns the configured offer year, or the calendar year of now
// in the offer zone when none is pinned.
func (c *Config) OfferYearAt(now time.Time) int {
	if c.OfferYear > 0 {
		return c.OfferYear
	}
	return c.deadline.YearAt(now)
}

// Level maps LOG_LEVEL onto a slog level.
func (c *Config) Level() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
