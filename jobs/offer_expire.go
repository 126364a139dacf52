package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/curb360/offersite/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PageCache is the rendered page cache invalidated on expiry.
type PageCache interface {
	Bump(ctx context.Context) error
}

// OfferExpireJob bumps the page cache version once the deadline has passed so
// that every web instance stops serving the active page.
type OfferExpireJob struct {
	Cache   PageCache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOfferExpireJob wires dependencies for the expiry handler.
func NewOfferExpireJob(cache PageCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *OfferExpireJob {
	return &OfferExpireJob{
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// Handle processes TaskOfferExpire tasks.
func (j *OfferExpireJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Cache == nil {
		return errors.New("offer expire: handler not configured")
	}
	var payload OfferExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("offer expire: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskOfferExpire)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("year", payload.Year), slog.Time("deadline", payload.Deadline))
	if now := j.now(); now.Before(payload.Deadline) {
		logger.Warn("offer expire ran early", slog.Duration("early_by", payload.Deadline.Sub(now)))
		return fmt.Errorf("offer expire: deadline %s not reached", payload.Deadline.Format(time.RFC3339))
	}
	if err := j.Cache.Bump(ctx); err != nil {
		logger.Error("bump page cache", slog.Any("error", err))
		return err
	}
	logger.Info("page cache invalidated for expired offer")
	return nil
}

func (j *OfferExpireJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OfferExpireJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *OfferExpireJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
