package site

import (
	"context"
	"log/slog"
	"time"

	"github.com/curb360/offersite/internal/offer"
)

const (
	bumpRetryBase = 500 * time.Millisecond
	bumpRetryMax  = 30 * time.Second
)

// WatchExpiry bumps the page cache once the offer is observed expired so no
// instance keeps serving the active page. A failed bump is retried with
// backoff until it succeeds or ctx is cancelled. It never returns an error;
// pages render uncached while Redis is down.
func WatchExpiry(ctx context.Context, reader offer.Reader, cache *Cache, logger *slog.Logger) error {
	return watchExpiry(ctx, reader, cache, logger, bumpRetryBase, bumpRetryMax)
}

func watchExpiry(ctx context.Context, reader offer.Reader, cache *Cache, logger *slog.Logger, base, maxDelay time.Duration) error {
	if logger == nil {
		logger = slog.Default()
	}
	sub := reader.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.C():
			if !ok {
				return nil
			}
			if !snap.Expired {
				continue
			}
			logger.Info("offer expired", slog.Time("deadline", snap.Deadline))
			bumpUntilDone(ctx, cache, logger, base, maxDelay)
			return nil
		}
	}
}

func bumpUntilDone(ctx context.Context, cache *Cache, logger *slog.Logger, base, maxDelay time.Duration) {
	delay := base
	for attempt := 1; ; attempt++ {
		err := cache.Bump(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("page cache bumped after retry", slog.Int("attempt", attempt))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		logger.Warn("bump page cache on expiry",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.Any("error", err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
