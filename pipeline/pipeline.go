package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
	"github.com/c360/gridwatch/metric"
	"github.com/c360/gridwatch/processor"
	"github.com/c360/gridwatch/processor/anomaly"
	"github.com/c360/gridwatch/processor/noise"
	"github.com/c360/gridwatch/processor/trend"
)

// Option configures a Pipeline
type Option func(*options)

type options struct {
	name     string
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// WithName sets the pipeline name used in logs and metric labels
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records pipeline metrics in the registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

func buildOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Pipeline runs an ordered chain of stages.
type Pipeline struct {
	id      string
	name    string
	stages  []processor.Stage
	logger  *slog.Logger
	metrics *metric.Metrics

	mu    sync.Mutex // serializes invocations
	stats statistics
}

// New builds a pipeline from stages. It fails with ErrInvalidConfig when the
// list is empty, contains a nil stage, or when a stage's output kind is not
// accepted by the stage after it.
func New(stages []processor.Stage, opts ...Option) (*Pipeline, error) {
	if err := validateChain(stages); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	id := uuid.New().String()
	name := o.name
	if name == "" {
		name = "pipeline-" + id[:8]
	}

	p := &Pipeline{
		id:     id,
		name:   name,
		stages: append([]processor.Stage(nil), stages...),
		logger: o.logger.With("component", "pipeline", "pipeline", name),
	}
	if o.registry != nil {
		p.metrics = o.registry.CoreMetrics()
	}

	return p, nil
}

// NewDefault builds the noise -> trend -> anomaly chain.
func NewDefault(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)

	var noiseOpts []noise.Option
	if o.registry != nil && o.name != "" {
		noiseOpts = append(noiseOpts, noise.WithMetrics(o.registry, o.name))
	}
	reducer, err := noise.New(noise.Config{WindowSize: cfg.WindowSize}, noiseOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Pipeline", "NewDefault", "noise reducer creation")
	}

	detector, err := anomaly.New(anomaly.Config{Threshold: cfg.AnomalyThreshold, Input: message.KindTrend})
	if err != nil {
		return nil, errors.Wrap(err, "Pipeline", "NewDefault", "anomaly detector creation")
	}

	return New([]processor.Stage{reducer, trend.New(), detector}, opts...)
}

func validateChain(stages []processor.Stage) error {
	if len(stages) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: pipeline requires at least one stage", errors.ErrInvalidConfig),
			"Pipeline", "New", "validate stages")
	}

	for i, stage := range stages {
		if stage == nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: stage %d is nil", errors.ErrInvalidConfig, i),
				"Pipeline", "New", "validate stages")
		}
		if i == 0 {
			continue
		}
		prev := stages[i-1]
		if prev.Emits() != stage.Accepts() {
			return errors.WrapInvalid(
				fmt.Errorf("%w: stage %d (%s) emits %s but stage %d (%s) accepts %s",
					errors.ErrInvalidConfig, i-1, prev.Name(), prev.Emits(), i, stage.Name(), stage.Accepts()),
				"Pipeline", "New", "validate composition")
		}
	}
	return nil
}

// ID returns the unique instance ID
func (p *Pipeline) ID() string { return p.id }

// Name returns the pipeline name
func (p *Pipeline) Name() string { return p.name }

// Stages returns the stage list in execution order
func (p *Pipeline) Stages() []processor.Stage {
	return append([]processor.Stage(nil), p.stages...)
}

// Accepts returns the kind the first stage accepts
func (p *Pipeline) Accepts() message.Kind { return p.stages[0].Accepts() }

// Emits returns the kind the last stage emits
func (p *Pipeline) Emits() message.Kind { return p.stages[len(p.stages)-1].Emits() }

// Stats returns a snapshot of invocation statistics
func (p *Pipeline) Stats() Stats {
	return p.stats.snapshot()
}

// Run processes one batch and returns the anomaly result of the final stage.
func (p *Pipeline) Run(ctx context.Context, batch message.Series) (*message.AnomalyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runAnomaly(ctx, batch)
}

// TryRun is Run without waiting. It returns ErrPipelineBusy when another
// invocation is in progress.
func (p *Pipeline) TryRun(ctx context.Context, batch message.Series) (*message.AnomalyResult, error) {
	if !p.mu.TryLock() {
		p.stats.busy.Add(1)
		if p.metrics != nil {
			p.metrics.RecordBusy(p.name)
		}
		return nil, errors.WrapTransient(errors.ErrPipelineBusy, "Pipeline", "TryRun", "acquire pipeline")
	}
	defer p.mu.Unlock()
	return p.runAnomaly(ctx, batch)
}

// Process threads any payload through the chain and returns the last output.
func (p *Pipeline) Process(ctx context.Context, in message.Payload) (message.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.execute(ctx, in)
}

func (p *Pipeline) runAnomaly(ctx context.Context, batch message.Series) (*message.AnomalyResult, error) {
	out, err := p.execute(ctx, batch)
	if err != nil {
		return nil, err
	}

	result, ok := out.(*message.AnomalyResult)
	if !ok {
		last := len(p.stages) - 1
		return nil, errors.NewStageError(p.stages[last].Name(), last,
			fmt.Errorf("%w: final payload is %s, not %s", errors.ErrContractViolation, out.Kind(), message.KindAnomaly))
	}
	return result, nil
}

// execute must be called with p.mu held.
func (p *Pipeline) execute(ctx context.Context, in message.Payload) (message.Payload, error) {
	start := time.Now()

	out, err := p.executeStages(ctx, in)

	anomalies := 0
	if result, ok := out.(*message.AnomalyResult); ok && err == nil {
		anomalies = len(result.Anomalies)
	}
	p.stats.record(start, anomalies, err)

	if err != nil {
		p.recordTick(err)
		p.logger.Debug("Pipeline invocation failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	p.recordTick(nil)
	p.recordResult(out)
	p.logger.Debug("Pipeline invocation completed", "duration", time.Since(start), "anomalies", anomalies)
	return out, nil
}

func (p *Pipeline) executeStages(ctx context.Context, in message.Payload) (message.Payload, error) {
	current := in
	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewStageError(stage.Name(), i, err)
		}

		if current == nil || current.Kind() != stage.Accepts() {
			got := message.Kind("<nil>")
			if current != nil {
				got = current.Kind()
			}
			return nil, p.stageFailure(stage, i, fmt.Errorf("%w: stage accepts %s, received %s",
				errors.ErrContractViolation, stage.Accepts(), got))
		}

		stageStart := time.Now()
		out, err := stage.Process(ctx, current)
		if p.metrics != nil {
			p.metrics.RecordStageDuration(p.name, stage.Name(), time.Since(stageStart))
		}
		if err != nil {
			return nil, p.stageFailure(stage, i, err)
		}

		if out == nil || out.Kind() != stage.Emits() {
			got := message.Kind("<nil>")
			if out != nil {
				got = out.Kind()
			}
			return nil, p.stageFailure(stage, i, fmt.Errorf("%w: stage declared %s, returned %s",
				errors.ErrContractViolation, stage.Emits(), got))
		}

		if w, ok := stage.(interface{ WindowLen() int }); ok && p.metrics != nil {
			p.metrics.RecordWindowLength(p.name, w.WindowLen())
		}

		current = out
	}
	return current, nil
}

func (p *Pipeline) stageFailure(stage processor.Stage, position int, err error) error {
	if p.metrics != nil {
		p.metrics.RecordStageError(p.name, stage.Name(), errors.Classify(err).String())
	}
	return errors.NewStageError(stage.Name(), position, err)
}

func (p *Pipeline) recordTick(err error) {
	if p.metrics == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "cancelled"
	default:
		status = "error"
	}
	p.metrics.RecordTick(p.name, status)
}

func (p *Pipeline) recordResult(out message.Payload) {
	if p.metrics == nil {
		return
	}
	result, ok := out.(*message.AnomalyResult)
	if !ok {
		return
	}
	p.metrics.RecordAnomalies(p.name, len(result.Anomalies))
	if result.Degenerate {
		p.metrics.RecordDegenerate(p.name)
	}
	if result.Trend != nil {
		p.metrics.RecordSlope(p.name, result.Slope)
	}
}
