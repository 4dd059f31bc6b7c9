package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"srik/services/identity/internal/metrics"
)

type SessionPurger interface {
	PurgeRefreshSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionPurgeConfig struct {
	Schedule   string
	Timeout    time.Duration
	RunOnStart bool
}

// StartSessionPurgeJob deletes expired and revoked refresh sessions on the
// cron schedule until ctx is done. Overlapping runs are skipped. The returned
// channel is closed once the scheduler and any running purge have stopped.
func StartSessionPurgeJob(ctx context.Context, cfg SessionPurgeConfig, store SessionPurger, logger *zap.Logger, now func() time.Time) (<-chan struct{}, error) {
	if now == nil {
		now = time.Now
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	purge := func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		n, err := store.PurgeRefreshSessions(runCtx, now().UTC())
		if err != nil {
			logger.Error("session purge failed", zap.Error(err))
			return
		}
		metrics.PurgedSessions.Add(float64(n))
		if n > 0 {
			logger.Info("purged refresh sessions", zap.Int64("count", n))
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})))
	if _, err := c.AddFunc(cfg.Schedule, purge); err != nil {
		return nil, fmt.Errorf("session purge schedule %q: %w", cfg.Schedule, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if cfg.RunOnStart {
			purge()
		}
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return done, nil
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
