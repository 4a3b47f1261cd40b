// Package window provides a fixed-capacity, thread-safe FIFO window over an
// unbounded stream of samples.
//
// Push appends values in order and evicts the oldest values once the window
// is over capacity. Snapshot returns the retained values oldest first without
// mutating the window. Statistics are always collected; Prometheus export is
// optional via WithMetrics.
package window

import (
	"fmt"
	"sync"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/metric"
)

// DropCallback is called with each value evicted from the window.
type DropCallback[T any] func(item T)

// Option configures window behavior using the functional options pattern.
type Option[T any] func(*options[T])

type options[T any] struct {
	dropCallback  DropCallback[T]
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithDropCallback sets a callback invoked, outside the window lock, for every evicted value.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *options[T]) {
		opts.dropCallback = callback
	}
}

// WithMetrics enables Prometheus export of window statistics.
// A nil registry or empty prefix leaves metrics disabled.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(opts *options[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// Window is a ring-backed FIFO of the most recent Capacity() values.
type Window[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	stats    *Statistics
	metrics  *windowMetrics
	opts     *options[T]
}

// New creates a window holding at most capacity values.
// A capacity below 1 is a configuration error.
func New[T any](capacity int, opts ...Option[T]) (*Window[T], error) {
	if capacity < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: window capacity must be >= 1, got %d", errors.ErrInvalidConfig, capacity),
			"Window", "New", "validate capacity")
	}

	o := &options[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var metrics *windowMetrics
	if o.metricsReg != nil {
		var err error
		metrics, err = newWindowMetrics(o.metricsReg, o.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "Window", "New", "metrics registration")
		}
	}

	return &Window[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     o,
	}, nil
}

// Push appends values in order, then evicts from the front until the window fits its capacity.
func (w *Window[T]) Push(values ...T) {
	if len(values) == 0 {
		return
	}

	var dropped []T
	drops := 0

	w.mu.Lock()
	for _, v := range values {
		if w.size == w.capacity {
			oldest := w.items[w.head] // head wraps onto the oldest slot when full
			if w.opts.dropCallback != nil {
				dropped = append(dropped, oldest)
			}
			w.size--
			drops++
			w.stats.Drop()
		}

		w.items[w.head] = v
		w.head = (w.head + 1) % w.capacity
		w.size++
		w.stats.Write()
	}
	w.stats.UpdateSize(int64(w.size))
	size := w.size
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.recordPush(len(values), drops, size, w.capacity)
	}

	for _, v := range dropped {
		w.opts.dropCallback(v)
	}
}

// Snapshot returns a copy of the window contents, oldest first.
func (w *Window[T]) Snapshot() []T {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]T, w.size)
	start := (w.head - w.size + w.capacity) % w.capacity
	for i := 0; i < w.size; i++ {
		out[i] = w.items[(start+i)%w.capacity]
	}
	return out
}

// Len returns the number of values currently retained.
func (w *Window[T]) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

// Capacity returns the maximum number of retained values.
func (w *Window[T]) Capacity() int {
	return w.capacity
}

// IsFull returns true once the window holds Capacity() values.
func (w *Window[T]) IsFull() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size == w.capacity
}

// Clear removes all values without invoking the drop callback.
func (w *Window[T]) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	var zero T
	for i := range w.items {
		w.items[i] = zero
	}
	w.head = 0
	w.size = 0
	w.stats.UpdateSize(0)

	if w.metrics != nil {
		w.metrics.updateSize(0, w.capacity)
	}
}

// Stats returns window statistics.
func (w *Window[T]) Stats() *Statistics {
	return w.stats
}
