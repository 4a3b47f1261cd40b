// Package natssource feeds sensor readings received over NATS into the
// sensor.Sensor capability.
//
// Each configured sensor ID is subscribed at "<prefix>.<id>". Messages carry
// a JSON-encoded message.Reading; the source keeps only the latest value per
// sensor. A sensor that has not reported yet, or whose last report is older
// than MaxAge, samples NaN. The pipeline rejects NaN as invalid data, so a
// silent sensor fails its tick instead of being smoothed over.
package natssource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
	"github.com/c360/gridwatch/sensor"
)

// DefaultPrefix is the subject prefix used when Config.Prefix is empty
const DefaultPrefix = "gridwatch.readings"

// Subscriber is the subset of natsclient.Client the source needs.
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
}

// Config holds source configuration
type Config struct {
	Prefix    string        `json:"prefix"              yaml:"prefix"`
	SensorIDs []string      `json:"sensor_ids"          yaml:"sensor_ids"`
	MaxAge    time.Duration `json:"max_age,omitempty"   yaml:"max_age,omitempty"`
}

// Option configures a Source
type Option func(*Source)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for staleness checks
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

type latest struct {
	value    float64
	tick     uint64
	received time.Time
}

// Source tracks the latest reading of each sensor.
type Source struct {
	sub    Subscriber
	prefix string
	ids    []string
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	readings map[string]latest
	started  bool

	received atomic.Int64
	rejected atomic.Int64
}

// New creates a source. At least one sensor ID is required and IDs must be unique.
func New(sub Subscriber, cfg Config, opts ...Option) (*Source, error) {
	if sub == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: subscriber is required", errors.ErrMissingConfig),
			"NATSSource", "New", "validate subscriber")
	}
	if len(cfg.SensorIDs) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: at least one sensor id is required", errors.ErrMissingConfig),
			"NATSSource", "New", "validate sensor ids")
	}

	seen := make(map[string]bool, len(cfg.SensorIDs))
	for _, id := range cfg.SensorIDs {
		if id == "" || strings.ContainsAny(id, ".*> ") {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: sensor id %q is not a valid subject token", errors.ErrInvalidConfig, id),
				"NATSSource", "New", "validate sensor ids")
		}
		if seen[id] {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: duplicate sensor id %q", errors.ErrInvalidConfig, id),
				"NATSSource", "New", "validate sensor ids")
		}
		seen[id] = true
	}

	prefix := strings.TrimSuffix(cfg.Prefix, ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}

	s := &Source{
		sub:      sub,
		prefix:   prefix,
		ids:      append([]string(nil), cfg.SensorIDs...),
		maxAge:   cfg.MaxAge,
		logger:   slog.Default(),
		now:      time.Now,
		readings: make(map[string]latest),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "natssource")

	return s, nil
}

// Subject returns the subject a sensor publishes on
func (s *Source) Subject(id string) string {
	return s.prefix + "." + id
}

// Start subscribes to every sensor subject.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "NATSSource", "Start", "check state")
	}
	s.started = true
	s.mu.Unlock()

	for _, id := range s.ids {
		id := id
		subject := s.Subject(id)
		if err := s.sub.Subscribe(ctx, subject, func(_ context.Context, data []byte) {
			s.handle(id, data)
		}); err != nil {
			return errors.WrapTransient(err, "NATSSource", "Start", "subscribe "+subject)
		}
		s.logger.Debug("Subscribed to sensor subject", "sensor", id, "subject", subject)
	}
	return nil
}

func (s *Source) handle(id string, data []byte) {
	var r message.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		s.rejected.Add(1)
		s.logger.Warn("Dropping malformed reading", "sensor", id, "error", err)
		return
	}
	if r.SensorID == "" {
		r.SensorID = id
	}
	if r.SensorID != id {
		s.rejected.Add(1)
		s.logger.Warn("Sensor not recognized on subject", "sensor", r.SensorID, "subject", s.Subject(id))
		return
	}

	s.mu.Lock()
	s.readings[id] = latest{value: r.Value, tick: r.Tick, received: s.now()}
	s.mu.Unlock()
	s.received.Add(1)
}

// Latest returns the most recent reading for id and whether it is usable.
func (s *Source) Latest(id string) (message.Reading, bool) {
	s.mu.RLock()
	l, ok := s.readings[id]
	s.mu.RUnlock()

	if !ok {
		return message.Reading{SensorID: id, Value: math.NaN()}, false
	}
	r := message.Reading{SensorID: id, Tick: l.tick, Value: l.value}
	if s.maxAge > 0 && s.now().Sub(l.received) > s.maxAge {
		r.Value = math.NaN()
		return r, false
	}
	return r, true
}

// Sensors returns one sensor per configured ID, in configuration order.
func (s *Source) Sensors() []sensor.Sensor {
	out := make([]sensor.Sensor, len(s.ids))
	for i, id := range s.ids {
		out[i] = &remoteSensor{id: id, source: s}
	}
	return out
}

// Received returns the number of accepted readings
func (s *Source) Received() int64 { return s.received.Load() }

// Rejected returns the number of dropped messages
func (s *Source) Rejected() int64 { return s.rejected.Load() }

type remoteSensor struct {
	id     string
	source *Source
}

func (r *remoteSensor) ID() string { return r.id }

func (r *remoteSensor) Sample() float64 {
	reading, _ := r.source.Latest(r.id)
	return reading.Value
}
