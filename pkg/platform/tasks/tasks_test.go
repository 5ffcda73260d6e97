package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestPoolRunsSubmittedTasks(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	pool := NewPool(WithWorkers(2), WithBackOff(zeroBackOff), WithMetrics(m))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = pool.Run(ctx)
		close(done)
	}()

	var runs atomic.Int32
	for range 5 {
		pool.Submit(context.Background(), Task{Name: "count", Run: func(context.Context) error {
			runs.Add(1)
			return nil
		}})
	}

	require.Eventually(t, func() bool { return runs.Load() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, float64(5), testutil.ToFloat64(m.Completed.WithLabelValues("count")))
}

func TestPoolRetriesUntilSuccess(t *testing.T) {
	pool := NewPool(WithWorkers(1), WithMaxRetries(3), WithBackOff(zeroBackOff))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = pool.Run(ctx) }()

	var attempts atomic.Int32
	succeeded := make(chan struct{})
	pool.Submit(context.Background(), Task{Name: "flaky", Run: func(context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(succeeded)
		return nil
	}})

	select {
	case <-succeeded:
	case <-time.After(time.Second):
		t.Fatal("task never succeeded")
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestInlineGivesUpAfterMaxRetries(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	inline := Inline{MaxRetries: 2, Metrics: m}

	attempts := 0
	inline.Submit(context.Background(), Task{Name: "broken", Run: func(context.Context) error {
		attempts++
		return errors.New("down")
	}})

	assert.Equal(t, 3, attempts)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Failed.WithLabelValues("broken")))
}

func TestInlineStopsOnPermanentError(t *testing.T) {
	attempts := 0
	Inline{MaxRetries: 5}.Submit(context.Background(), Task{Name: "bad-input", Run: func(context.Context) error {
		attempts++
		return backoff.Permanent(errors.New("malformed"))
	}})
	assert.Equal(t, 1, attempts)
}

func TestSubmitOutlivesRequestContext(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	Inline{}.Submit(reqCtx, Task{Name: "detached", Run: func(ctx context.Context) error {
		seen = ctx.Err()
		return nil
	}})
	assert.NoError(t, seen)
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	pool := NewPool(WithQueueSize(1), WithMetrics(m))
	noop := Task{Name: "noop", Run: func(context.Context) error { return nil }}

	pool.Submit(context.Background(), noop)
	pool.Submit(context.Background(), noop)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dropped.WithLabelValues("noop")))
}

func TestRunDrainsQueueOnShutdown(t *testing.T) {
	pool := NewPool(WithWorkers(1), WithBackOff(zeroBackOff))
	var runs atomic.Int32
	for range 3 {
		pool.Submit(context.Background(), Task{Name: "late", Run: func(context.Context) error {
			runs.Add(1)
			return nil
		}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pool.Run(ctx))
	assert.Equal(t, int32(3), runs.Load())

	pool.Submit(context.Background(), Task{Name: "after", Run: func(context.Context) error {
		t.Fatal("task ran after shutdown")
		return nil
	}})
}
