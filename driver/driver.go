package driver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/health"
	"github.com/c360/gridwatch/message"
	"github.com/c360/gridwatch/metric"
	"github.com/c360/gridwatch/pipeline"
	"github.com/c360/gridwatch/pkg/worker"
	"github.com/c360/gridwatch/sensor"
)

const (
	// DefaultInterval is the tick period used when none is configured
	DefaultInterval = time.Second

	componentName = "driver"
	stopTimeout   = 5 * time.Second
)

// GroupConfig describes one sensor group and the pipeline that serves it.
type GroupConfig struct {
	Name     string
	Sensors  []sensor.Sensor
	// Pipeline configures the group's pipeline. Nil selects
	// pipeline.DefaultConfig.
	Pipeline *pipeline.Config
}

// Group is a built sensor group. Its pipeline is owned by the group alone.
type Group struct {
	name     string
	sensors  *sensor.Registry
	pipeline *pipeline.Pipeline
}

// Name returns the group name
func (g *Group) Name() string { return g.name }

// Pipeline returns the group's pipeline
func (g *Group) Pipeline() *pipeline.Pipeline { return g.pipeline }

// Sensors returns the group's sensor registry
func (g *Group) Sensors() *sensor.Registry { return g.sensors }

// Config configures a Driver
type Config struct {
	Interval  time.Duration
	Workers   int
	QueueSize int
	Groups    []GroupConfig
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the driver logger. The default sink logs through it too.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSink replaces the default log sink
func WithSink(sink Sink) Option {
	return func(d *Driver) {
		d.sink = sink
	}
}

// WithMetrics registers pipeline, window and worker metrics with registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(d *Driver) {
		d.registry = registry
	}
}

// Driver ticks a set of sensor groups through their pipelines.
type Driver struct {
	interval time.Duration
	groups   []*Group
	pool     *worker.Pool[job]
	sink     Sink
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	monitor  *health.Monitor

	tick    atomic.Uint64
	skipped atomic.Int64
	dropped atomic.Int64
	running atomic.Bool
}

type job struct {
	group *Group
	tick  uint64
}

// New builds the groups and their pipelines. Group names must be unique and
// every group needs at least one sensor.
func New(cfg Config, opts ...Option) (*Driver, error) {
	if len(cfg.Groups) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, componentName, "New", "validate groups")
	}
	if cfg.Interval < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, componentName, "New", "validate interval")
	}

	d := &Driver{
		interval: cfg.Interval,
		logger:   slog.Default(),
		monitor:  health.NewMonitor(),
	}
	if d.interval == 0 {
		d.interval = DefaultInterval
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", componentName)
	if d.sink == nil {
		d.sink = NewLogSink(d.logger, time.Second, 5)
	}

	seen := make(map[string]struct{}, len(cfg.Groups))
	for _, gc := range cfg.Groups {
		if gc.Name == "" {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, componentName, "New", "validate group name")
		}
		if _, dup := seen[gc.Name]; dup {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, componentName, "New",
				"register group "+gc.Name)
		}
		seen[gc.Name] = struct{}{}

		g, err := d.buildGroup(gc)
		if err != nil {
			return nil, err
		}
		d.groups = append(d.groups, g)
		d.updateHealth(g)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = len(d.groups)
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 2 * len(d.groups)
	}
	poolOpts := []worker.Option[job]{}
	if d.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[job](d.registry, "driver"))
	}
	pool, err := worker.NewPool(workers, queue, d.process, poolOpts...)
	if err != nil {
		return nil, errors.WrapInvalid(err, componentName, "New", "create worker pool")
	}
	d.pool = pool

	return d, nil
}

func (d *Driver) buildGroup(gc GroupConfig) (*Group, error) {
	if len(gc.Sensors) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, componentName, "New",
			"validate sensors of group "+gc.Name)
	}
	reg, err := sensor.NewRegistry(gc.Sensors...)
	if err != nil {
		return nil, errors.WrapInvalid(err, componentName, "New", "register sensors of group "+gc.Name)
	}

	popts := []pipeline.Option{pipeline.WithName(gc.Name), pipeline.WithLogger(d.logger)}
	if d.registry != nil {
		popts = append(popts, pipeline.WithMetrics(d.registry))
	}
	pcfg := pipeline.DefaultConfig()
	if gc.Pipeline != nil {
		pcfg = *gc.Pipeline
	}
	p, err := pipeline.NewDefault(pcfg, popts...)
	if err != nil {
		return nil, errors.WrapInvalid(err, componentName, "New", "build pipeline of group "+gc.Name)
	}

	return &Group{name: gc.Name, sensors: reg, pipeline: p}, nil
}

// Groups returns the driver's groups in configuration order
func (d *Driver) Groups() []*Group {
	out := make([]*Group, len(d.groups))
	copy(out, d.groups)
	return out
}

// Interval returns the tick period
func (d *Driver) Interval() time.Duration { return d.interval }

// Ticks returns the number of ticks started so far
func (d *Driver) Ticks() uint64 { return d.tick.Load() }

// Skipped returns how many group ticks were skipped because the pipeline was busy
func (d *Driver) Skipped() int64 { return d.skipped.Load() }

// Dropped returns how many group ticks could not be queued
func (d *Driver) Dropped() int64 { return d.dropped.Load() }

// Tick runs one tick across all groups on the calling goroutine and returns
// the results in group order.
func (d *Driver) Tick(ctx context.Context) []Result {
	n := d.tick.Add(1)
	results := make([]Result, 0, len(d.groups))
	for _, g := range d.groups {
		results = append(results, d.runGroup(ctx, g, n))
	}
	return results
}

// Run ticks every interval until ctx is cancelled. Group ticks run on the
// worker pool; a group still busy with the previous tick skips the new one.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.WrapFatal(errors.ErrAlreadyStarted, componentName, "Run", "start driver")
	}

	if err := d.pool.Start(ctx); err != nil {
		return errors.WrapFatal(err, componentName, "Run", "start worker pool")
	}
	defer func() {
		if err := d.pool.Stop(stopTimeout); err != nil {
			d.logger.Warn("Worker pool did not stop cleanly", "error", err)
		}
	}()

	d.logger.Info("Driver started", "interval", d.interval, "groups", len(d.groups))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Driver stopped", "ticks", d.Ticks(), "skipped", d.Skipped(), "dropped", d.Dropped())
			return nil
		case <-ticker.C:
			d.submitTick()
		}
	}
}

func (d *Driver) submitTick() {
	n := d.tick.Add(1)
	for _, g := range d.groups {
		if err := d.pool.Submit(job{group: g, tick: n}); err != nil {
			d.dropped.Add(1)
			d.logger.Debug("Group tick not queued", "group", g.name, "tick", n, "error", err)
		}
	}
}

func (d *Driver) process(ctx context.Context, j job) error {
	return d.runGroup(ctx, j.group, j.tick).Err
}

func (d *Driver) runGroup(ctx context.Context, g *Group, tick uint64) Result {
	readings := g.sensors.SampleAll(tick)
	start := time.Now()
	res, err := g.pipeline.TryRun(ctx, message.SeriesFromReadings(readings))

	r := Result{
		Group:    g.name,
		Tick:     tick,
		Readings: readings,
		Anomaly:  res,
		Err:      err,
		Duration: time.Since(start),
	}
	if r.Skipped() {
		d.skipped.Add(1)
	} else {
		d.updateHealth(g)
	}
	d.sink.Handle(ctx, r)
	return r
}

func (d *Driver) updateHealth(g *Group) {
	d.monitor.Update(g.name, health.FromPipeline(g.name, g.pipeline.Stats(), health.DefaultErrorRateThreshold))
}

// Health aggregates the status of every group as of its last completed
// tick. Sub-statuses are ordered by group name.
func (d *Driver) Health() health.Status {
	return d.monitor.AggregateHealth(componentName)
}
