package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/store"
	"github.com/coder/quartz"
)

// LastResetKey is where the time of the last daily reset is kept.
const LastResetKey = "last_stats_reset"

// DailyResetter is the part of the analytics mirror the scheduler drives.
type DailyResetter interface {
	ResetDaily()
}

type DailyResetConfig struct {
	CheckInterval time.Duration
	Window        time.Duration
}

// DailyResetScheduler zeroes the mirror's daily counters once the rolling
// window since the last reset has elapsed. The marker survives restarts
// because it lives in the key-value store.
type DailyResetScheduler struct {
	cfg     DailyResetConfig
	clock   quartz.Clock
	kv      store.Store
	mirror  DailyResetter
	logger  *slog.Logger
	onReset func(ctx context.Context, at time.Time)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewDailyResetScheduler(
	cfg DailyResetConfig,
	clock quartz.Clock,
	kv store.Store,
	mirror DailyResetter,
	logger *slog.Logger,
	onReset func(ctx context.Context, at time.Time),
) *DailyResetScheduler {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &DailyResetScheduler{cfg: cfg, clock: clock, kv: kv, mirror: mirror, logger: logger, onReset: onReset}
}

// Start checks immediately and then on every interval. Calling Start on a
// running scheduler does nothing.
func (s *DailyResetScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if _, err := s.Check(runCtx); err != nil {
		s.logger.Error("daily reset check failed", slog.Any("error", err))
	}

	s.clock.TickerFunc(runCtx, s.cfg.CheckInterval, func() error {
		if runCtx.Err() != nil {
			return runCtx.Err()
		}
		if _, err := s.Check(runCtx); err != nil {
			s.logger.Error("daily reset check failed", slog.Any("error", err))
		}
		return nil
	}, "daily-reset")
}

// Stop cancels the recurring check.
func (s *DailyResetScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *DailyResetScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Check resets the daily counters when the window has elapsed and reports
// whether it did. A missing marker only records a baseline.
func (s *DailyResetScheduler) Check(ctx context.Context) (bool, error) {
	now := s.clock.Now()

	raw, err := s.kv.Get(ctx, LastResetKey)
	if errors.Is(err, store.ErrMiss) {
		return false, s.writeMarker(ctx, now)
	}
	if err != nil {
		return false, fmt.Errorf("read last reset marker: %w", err)
	}

	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Warn("unreadable last reset marker, recording new baseline", slog.String("value", raw))
		return false, s.writeMarker(ctx, now)
	}

	if now.Sub(last) < s.cfg.Window {
		return false, nil
	}

	s.mirror.ResetDaily()
	if err := s.writeMarker(ctx, now); err != nil {
		return true, err
	}

	s.logger.Info("daily stats reset", slog.Time("previous_reset", last))
	if s.onReset != nil {
		s.onReset(ctx, now)
	}
	return true, nil
}

// LastReset returns the stored marker, if any.
func (s *DailyResetScheduler) LastReset(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.kv.Get(ctx, LastResetKey)
	if errors.Is(err, store.ErrMiss) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (s *DailyResetScheduler) writeMarker(ctx context.Context, at time.Time) error {
	if err := s.kv.Set(ctx, LastResetKey, at.UTC().Format(time.RFC3339Nano), 0); err != nil {
		return fmt.Errorf("write last reset marker: %w", err)
	}
	return nil
}
