package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait_ZeroDuration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, Wait(ctx, 0))
}

func TestRunWithTimeout_DeadlinePropagates(t *testing.T) {
	err := RunWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSingleTickerLoop_RunOnStartAndTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int32

	done := make(chan error, 1)

	go func() {
		done <- SingleTickerLoop(ctx, SingleTickerConfig{
			Name:       "test",
			Interval:   5 * time.Millisecond,
			RunOnStart: true,
			OnTick: func(context.Context) {
				if ticks.Add(1) >= 3 {
					cancel()
				}
			},
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	assert.GreaterOrEqual(t, ticks.Load(), int32(3))
}

func TestSingleTickerLoop_SecondaryTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var secondary atomic.Int32

	done := make(chan error, 1)

	go func() {
		done <- SingleTickerLoop(ctx, SingleTickerConfig{
			Name:              "test",
			Interval:          time.Hour,
			SecondaryInterval: 5 * time.Millisecond,
			OnSecondaryTick: func(context.Context) {
				if secondary.Add(1) >= 2 {
					cancel()
				}
			},
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	assert.GreaterOrEqual(t, secondary.Load(), int32(2))
}
