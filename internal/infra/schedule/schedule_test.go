package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/app/sweep"
)

type countingSweep struct {
	runs atomic.Int32
}

func (c *countingSweep) Run(ctx context.Context, now time.Time) (sweep.Result, error) {
	c.runs.Add(1)
	return sweep.Result{Scanned: 1}, nil
}

func TestRunOnceTriggersEveryJob(t *testing.T) {
	locks, completions := &countingSweep{}, &countingSweep{}
	s, err := New(context.Background(), Options{Interval: time.Hour},
		Job{Name: "room-lock-expiry", Sweep: locks},
		Job{Name: "reservation-completion", Sweep: completions},
	)
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	require.NoError(t, s.RunOnce())
	assert.Eventually(t, func() bool {
		return locks.runs.Load() >= 1 && completions.runs.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
