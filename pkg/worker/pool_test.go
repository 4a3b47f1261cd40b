package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/gridwatch/metric"
)

func TestNewPool(t *testing.T) {
	_, err := NewPool[int](1, 1, nil)
	assert.ErrorIs(t, err, ErrNilProcessor)

	p, err := NewPool(0, 0, func(context.Context, int) error { return nil })
	require.NoError(t, err)
	stats := p.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, 64, stats.QueueSize)
}

func TestPool_Lifecycle(t *testing.T) {
	p, err := NewPool(1, 1, func(context.Context, int) error { return nil })
	require.NoError(t, err)

	assert.ErrorIs(t, p.Submit(1), ErrPoolNotStarted)
	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrPoolAlreadyStarted)

	require.NoError(t, p.Stop(time.Second))
	assert.ErrorIs(t, p.Submit(1), ErrPoolStopped)
	assert.NoError(t, p.Stop(time.Second), "second stop is a no-op")
}

func TestPool_ProcessesAll(t *testing.T) {
	var sum atomic.Int64
	p, err := NewPool(3, 100, func(_ context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	for i := 1; i <= 50; i++ {
		require.NoError(t, p.Submit(i))
	}
	require.NoError(t, p.Stop(time.Second))

	assert.Equal(t, int64(1275), sum.Load())
	stats := p.Stats()
	assert.Equal(t, int64(50), stats.Submitted)
	assert.Equal(t, int64(50), stats.Processed)
	assert.Zero(t, stats.Failed)
}

func TestPool_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p, err := NewPool(1, 1, func(context.Context, int) error {
		started <- struct{}{}
		<-release
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Submit(1))
	<-started
	require.NoError(t, p.Submit(2))
	assert.ErrorIs(t, p.Submit(3), ErrQueueFull)
	assert.Equal(t, int64(1), p.Stats().Dropped)

	close(release)
	require.NoError(t, p.Stop(time.Second))
}

func TestPool_ErrorHandler(t *testing.T) {
	boom := errors.New("boom")
	var mu sync.Mutex
	var failedItems []int

	p, err := NewPool(1, 10,
		func(_ context.Context, n int) error {
			if n%2 == 0 {
				return boom
			}
			return nil
		},
		WithErrorHandler(func(n int, err error) {
			mu.Lock()
			defer mu.Unlock()
			assert.ErrorIs(t, err, boom)
			failedItems = append(failedItems, n)
		}),
	)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	for i := 1; i <= 4; i++ {
		require.NoError(t, p.Submit(i))
	}
	require.NoError(t, p.Stop(time.Second))

	assert.Equal(t, []int{2, 4}, failedItems)
	assert.Equal(t, int64(2), p.Stats().Failed)
}

func TestPool_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p, err := NewPool(1, 1, func(context.Context, int) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Submit(1))

	assert.ErrorIs(t, p.Stop(20*time.Millisecond), ErrStopTimeout)
}

func TestPool_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p, err := NewPool(1, 4, func(context.Context, int) error { return nil },
		WithMetricsRegistry[int](registry, "ticks"))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Submit(1))
	require.NoError(t, p.Stop(time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.submitted))

	_, err = NewPool(1, 4, func(context.Context, int) error { return nil },
		WithMetricsRegistry[int](registry, "ticks"))
	assert.Error(t, err, "duplicate registration")
}
