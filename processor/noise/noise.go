package noise

import (
	"context"
	"fmt"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
	"github.com/c360/gridwatch/metric"
	"github.com/c360/gridwatch/pkg/window"
	"github.com/c360/gridwatch/processor"
)

// DefaultWindowSize is the window size of DefaultConfig
const DefaultWindowSize = 5

// StageName identifies the reducer in errors and metrics
const StageName = "noise-reducer"

// Config holds noise reducer configuration
type Config struct {
	WindowSize int `json:"window_size" yaml:"window_size"`
}

// DefaultConfig returns the default reducer configuration
func DefaultConfig() Config {
	return Config{WindowSize: DefaultWindowSize}
}

// Option configures a Reducer
type Option func(*Reducer)

// WithMetrics exports the reducer's window statistics under the given prefix.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(r *Reducer) {
		r.registry = registry
		r.prefix = prefix
	}
}

// Reducer smooths each batch with a trailing moving average.
type Reducer struct {
	size   int
	window *window.Window[float64]

	registry *metric.MetricsRegistry
	prefix   string
}

var _ processor.Stage = (*Reducer)(nil)

// New creates a reducer. A window size below one is a configuration error.
func New(cfg Config, opts ...Option) (*Reducer, error) {
	if cfg.WindowSize < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: window_size must be a positive integer, got %d", errors.ErrInvalidConfig, cfg.WindowSize),
			"NoiseReducer", "New", "validate window size")
	}

	r := &Reducer{size: cfg.WindowSize}
	for _, opt := range opts {
		opt(r)
	}

	w, err := window.New(cfg.WindowSize, window.WithMetrics[float64](r.registry, r.prefix))
	if err != nil {
		return nil, errors.Wrap(err, "NoiseReducer", "New", "window creation")
	}
	r.window = w

	return r, nil
}

// Name implements processor.Stage
func (r *Reducer) Name() string { return StageName }

// Accepts implements processor.Stage
func (r *Reducer) Accepts() message.Kind { return message.KindSeries }

// Emits implements processor.Stage
func (r *Reducer) Emits() message.Kind { return message.KindSeries }

// WindowSize returns the configured window size
func (r *Reducer) WindowSize() int { return r.size }

// Window returns a copy of the retained samples, oldest first.
func (r *Reducer) Window() []float64 {
	return r.window.Snapshot()
}

// WindowLen returns the number of retained samples
func (r *Reducer) WindowLen() int {
	return r.window.Len()
}

// Stats returns the window statistics
func (r *Reducer) Stats() *window.Statistics {
	return r.window.Stats()
}

// Reset discards all retained samples.
func (r *Reducer) Reset() {
	r.window.Clear()
}

// Process appends the batch to the window and returns the smoothed window.
// Non-finite input is rejected before the window is touched.
func (r *Reducer) Process(_ context.Context, in message.Payload) (message.Payload, error) {
	series, ok := in.(message.Series)
	if !ok {
		return nil, processor.UnexpectedPayload(StageName, message.KindSeries, in)
	}
	if err := processor.CheckFinite(StageName, series); err != nil {
		return nil, err
	}

	r.window.Push(series...)
	out := Smooth(r.window.Snapshot(), r.size)
	if !processor.Finite(out...) {
		return nil, processor.Overflow("NoiseReducer", "Process", "moving average")
	}
	return out, nil
}

// Smooth returns the trailing moving average of values with sub-window w.
// Positions with fewer than w predecessors average over what is available.
func Smooth(values []float64, w int) message.Series {
	out := make(message.Series, len(values))
	if w < 1 {
		w = 1
	}

	for i := range values {
		start := i - w + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		for _, v := range values[start : i+1] {
			sum += v
		}
		out[i] = sum / float64(i+1-start)
	}
	return out
}
