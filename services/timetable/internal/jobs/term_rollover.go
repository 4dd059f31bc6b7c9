package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"srik/services/timetable/internal/model"
)

type TermStore interface {
	SetCurrentTermForDate(ctx context.Context, day time.Time) (model.AcademicTerm, error)
}

type TermRolloverConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

// StartTermRolloverJob periodically marks the term covering today as current.
// It runs once immediately and then on every tick until ctx is done. The
// returned channel is closed when the job goroutine exits.
func StartTermRolloverJob(ctx context.Context, cfg TermRolloverConfig, store TermStore, logger *zap.Logger, now func() time.Time) <-chan struct{} {
	done := make(chan struct{})
	if !cfg.Enabled {
		close(done)
		return done
	}
	if store == nil {
		logger.Warn("term rollover job disabled: store not configured")
		close(done)
		return done
	}
	if now == nil {
		now = time.Now
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tick := func() {
		tickCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		term, err := store.SetCurrentTermForDate(tickCtx, now().UTC())
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Debug("term rollover: no term covers today")
			return
		}
		if err != nil {
			logger.Error("term rollover job error", zap.Error(err))
			return
		}
		logger.Debug("term rollover", zap.Int("term_id", term.ID), zap.String("term", term.Name))
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
	return done
}
