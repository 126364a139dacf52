package offer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = time.Second

// Recorder receives per-tick observations. observability.OfferMetrics
// implements it.
type Recorder interface {
	ObserveSnapshot(snap Snapshot)
	TickFailed()
}

// PollerConfig groups dependencies for a Poller.
type PollerConfig struct {
	Deadline Deadline
	Year     int
	Interval time.Duration
	Clock    Clock
	Cell     *Cell
	Logger   *slog.Logger
	Recorder Recorder
}

// Poller re-evaluates the offer on a fixed cadence and publishes into its Cell.
type Poller struct {
	zone     *time.Location
	deadline time.Time
	interval time.Duration
	clock    Clock
	cell     *Cell
	logger   *slog.Logger
	recorder Recorder
}

// NewPoller validates the configuration and resolves the deadline instant.
// Configuration errors are returned before any value is published.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Deadline.Zone == nil {
		return nil, fmt.Errorf("%w: deadline has no zone", ErrUnknownZone)
	}
	if cfg.Cell == nil {
		return nil, errors.New("offer: poller requires a cell")
	}
	deadline, err := cfg.Deadline.Instant(cfg.Year)
	if err != nil {
		return nil, err
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		zone:     cfg.Deadline.Zone,
		deadline: deadline,
		interval: interval,
		clock:    clock,
		cell:     cfg.Cell,
		logger:   logger,
		recorder: cfg.Recorder,
	}, nil
}

// Deadline returns the resolved deadline instant.
func (p *Poller) Deadline() time.Time {
	return p.deadline
}

// Run evaluates immediately and then once per interval until ctx is cancelled
// or the offer expires. After expiry the cell keeps serving the expired
// snapshot; Run returns nil in both cases.
func (p *Poller) Run(ctx context.Context) error {
	if p.tick() {
		p.logger.Info("offer expired", slog.Time("deadline", p.deadline))
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if p.tick() {
				p.logger.Info("offer expired, polling stopped", slog.Time("deadline", p.deadline))
				return nil
			}
		}
	}
}

// tick runs a single evaluation and reports whether the published state is
// expired. Clock failures and panics skip the tick.
func (p *Poller) tick() (expired bool) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("offer tick panicked", slog.Any("panic", rec))
			p.tickFailed()
			expired = false
		}
	}()

	now, err := NowInZone(p.clock, p.zone)
	if err != nil {
		p.logger.Warn("offer clock read failed, skipping tick", slog.Any("error", err))
		p.tickFailed()
		return false
	}

	snap := Snapshot{
		Result:      Evaluate(now, p.deadline),
		Deadline:    p.deadline,
		EvaluatedAt: now,
	}
	if p.cell.publish(snap) {
		p.logger.Debug("offer state changed",
			slog.Bool("expired", snap.Expired),
			slog.Int64("remaining_ms", snap.Remaining.Milliseconds()),
		)
	}
	current, _ := p.cell.Snapshot()
	if p.recorder != nil {
		p.recorder.ObserveSnapshot(current)
	}
	return current.Expired
}

func (p *Poller) tickFailed() {
	if p.recorder != nil {
		p.recorder.TickFailed()
	}
}
