package driver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
)

// Result is the outcome of one group's tick.
type Result struct {
	Group    string
	Tick     uint64
	Readings []message.Reading
	Anomaly  *message.AnomalyResult
	Err      error
	Duration time.Duration
}

// Skipped reports whether the tick was dropped because the pipeline was busy
func (r Result) Skipped() bool {
	return errors.Is(r.Err, errors.ErrPipelineBusy)
}

// Sink consumes tick results. Handle is called from worker goroutines and
// must be safe for concurrent use.
type Sink interface {
	Handle(ctx context.Context, r Result)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, r Result)

// Handle implements Sink
func (f SinkFunc) Handle(ctx context.Context, r Result) { f(ctx, r) }

// LogSink logs results. Failure warnings are rate limited; suppressed
// warnings are counted and reported with the next one let through.
type LogSink struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewLogSink creates a log sink allowing burst failure warnings per every interval.
func NewLogSink(logger *slog.Logger, every time.Duration, burst int) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	if every <= 0 {
		every = time.Second
	}
	if burst < 1 {
		burst = 1
	}
	return &LogSink{
		logger:  logger.With("component", "driver"),
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

// Handle implements Sink
func (s *LogSink) Handle(ctx context.Context, r Result) {
	if r.Err != nil {
		s.warn(ctx, r)
		return
	}

	a := r.Anomaly
	s.logger.InfoContext(ctx, "Tick processed",
		"group", r.Group,
		"tick", r.Tick,
		"points", len(a.OriginalData),
		"mean", a.Mean,
		"std_dev", a.StdDev,
		"anomalies", len(a.Anomalies),
		"degenerate", a.Degenerate,
		"duration", r.Duration)

	for _, an := range a.Anomalies {
		s.logger.WarnContext(ctx, "Anomaly detected",
			"group", r.Group,
			"tick", r.Tick,
			"index", an.Index,
			"value", an.Value,
			"z_score", an.ZScore,
			"threshold", a.Threshold)
	}
}

func (s *LogSink) warn(ctx context.Context, r Result) {
	if !s.limiter.Allow() {
		s.suppressed.Add(1)
		return
	}

	attrs := []any{"group", r.Group, "tick", r.Tick, "error", r.Err, "class", errors.Classify(r.Err).String()}
	if se, ok := errors.AsStageError(r.Err); ok {
		attrs = append(attrs, "stage", se.Stage, "position", se.Position)
	}
	if n := s.suppressed.Swap(0); n > 0 {
		attrs = append(attrs, "suppressed", n)
	}

	msg := "Tick failed"
	if r.Skipped() {
		msg = "Tick skipped, pipeline busy"
	}
	s.logger.WarnContext(ctx, msg, attrs...)
}

// Suppressed returns the number of warnings currently held back
func (s *LogSink) Suppressed() int64 {
	return s.suppressed.Load()
}
