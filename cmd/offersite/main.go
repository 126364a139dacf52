package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/curb360/offersite/internal/app"
	"github.com/curb360/offersite/internal/booking"
	"github.com/curb360/offersite/internal/catalog"
	"github.com/curb360/offersite/internal/observability"
	"github.com/curb360/offersite/internal/offer"
	offerhttp "github.com/curb360/offersite/internal/offer/http"
	"github.com/curb360/offersite/internal/platform/cache"
	"github.com/curb360/offersite/internal/site"
	"github.com/curb360/offersite/internal/view"
	"github.com/curb360/offersite/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("offersite", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	metrics := observability.NewMetrics()

	year := cfg.OfferYearAt(time.Now())
	deadline, err := cfg.Deadline().Instant(year)
	if err != nil {
		return fmt.Errorf("resolve deadline: %w", err)
	}
	logger = logger.With(slog.Int("offer_year", year))
	logger.Info("offer deadline resolved",
		slog.Time("deadline", deadline),
		slog.String("zone", cfg.OfferTimezone),
		slog.String("preview", cfg.OfferPreview))

	redisClient, err := cache.Open(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, pages render uncached until it recovers", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}
	pageCache := site.NewCache(redisClient, cfg.PageCacheTTL)

	reader, poller, err := newOfferReader(cfg, year, deadline, logger, metrics)
	if err != nil {
		return err
	}

	jobHandler := jobs.NewHandler(nil, logger)
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		inspector := asynq.NewInspector(redisOpts)
		defer func() { _ = inspector.Close() }()
		jobHandler = jobs.NewHandler(inspector, logger)

		if poller != nil {
			scheduleExpiry(ctx, jobs.NewClient(redisOpts), year, deadline, logger)
		}
		if err := pageCache.ListenForInvalidation(ctx, func(version int64) {
			logger.Debug("page cache version bumped", slog.Int64("version", version))
		}); err != nil {
			logger.Warn("page cache invalidation listener", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Catalog:        cat,
		SiteHandler:    site.NewHandler(logger, templates, cat, reader, pageCache),
		BookingHandler: booking.NewHandler(logger, booking.NewService(reader, cat), templates),
		OfferHandler:   offerhttp.NewHandler(logger, reader, offerhttp.WithRecorder(metrics.Offer())),
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	group, gctx := errgroup.WithContext(ctx)
	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
		// Open event streams end with the process context.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	if poller != nil {
		group.Go(func() error { return poller.Run(gctx) })
		group.Go(func() error { return site.WatchExpiry(gctx, reader, pageCache, logger) })
	}
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// newOfferReader returns the shared offer state. Preview modes pin the state
// and need no poller.
func newOfferReader(cfg *app.Config, year int, deadline time.Time, logger *slog.Logger, metrics *observability.Metrics) (offer.Reader, *offer.Poller, error) {
	switch cfg.OfferPreview {
	case app.PreviewActive, app.PreviewExpired:
		expired := cfg.OfferPreview == app.PreviewExpired
		snap := offer.Snapshot{Deadline: deadline, EvaluatedAt: time.Now()}
		if expired {
			snap.Result = offer.Result{Expired: true}
		} else {
			// Stays active even past the deadline.
			snap.Result = offer.Evaluate(time.Now(), deadline)
			snap.Expired = false
		}
		logger.Warn("offer preview mode pins the offer state", slog.Bool("expired", expired))
		reader := offer.NewFixed(snap)
		metrics.Offer().ObserveSnapshot(snap)
		return reader, nil, nil
	}

	cell := offer.NewCell()
	poller, err := offer.NewPoller(offer.PollerConfig{
		Deadline: cfg.Deadline(),
		Year:     year,
		Interval: cfg.OfferTickInterval,
		Clock:    offer.SystemClock{},
		Cell:     cell,
		Logger:   logger,
		Recorder: metrics.Offer(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("offer poller: %w", err)
	}
	return cell, poller, nil
}

func scheduleExpiry(ctx context.Context, client *jobs.Client, year int, deadline time.Time, logger *slog.Logger) {
	defer func() { _ = client.Close() }()
	if !time.Now().Before(deadline) {
		return
	}
	info, err := client.EnqueueOfferExpire(ctx, jobs.OfferExpirePayload{Year: year, Deadline: deadline})
	switch {
	case err != nil:
		logger.Warn("schedule offer expiry", slog.Any("error", err))
	case info == nil:
		logger.Info("offer expiry already scheduled", slog.String("task_id", jobs.OfferExpireTaskID(year)))
	default:
		logger.Info("offer expiry scheduled", slog.String("task_id", info.ID), slog.Time("process_at", info.NextProcessAt))
	}
}
