package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type purger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (p *purger) PurgeRefreshSessions(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	if p.err != nil {
		return 0, p.err
	}
	return 2, nil
}

func (p *purger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestSessionPurgeRunsOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &purger{}
	fixed := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)

	done, err := StartSessionPurgeJob(ctx, SessionPurgeConfig{Schedule: "@every 1h", RunOnStart: true}, store, zap.NewNop(), func() time.Time { return fixed })
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return store.count() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []time.Time{fixed}, store.cutoffs)
}

func TestSessionPurgeSurvivesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &purger{err: errors.New("db down")}

	done, err := StartSessionPurgeJob(ctx, SessionPurgeConfig{Schedule: "@every 1h", RunOnStart: true}, store, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return store.count() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestSessionPurgeRejectsBadSchedule(t *testing.T) {
	_, err := StartSessionPurgeJob(context.Background(), SessionPurgeConfig{Schedule: "every hour"}, &purger{}, zap.NewNop(), nil)
	assert.Error(t, err)
}
