// Package sensor provides the acquisition side of gridwatch: the Sensor
// capability sampled once per tick, simulated and static implementations, and
// an ordered Registry that turns one tick into a batch of readings.
package sensor

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/c360/gridwatch/errors"
)

// ErrUnknownSensor is returned when a lookup names a sensor that was never registered
var ErrUnknownSensor = errors.New("sensor not recognized")

// Sensor is sampled once per tick.
type Sensor interface {
	ID() string
	Sample() float64
}

// SimulatedConfig configures a Simulated sensor
type SimulatedConfig struct {
	ID string `json:"id" yaml:"id"`
	// Base is the nominal reading
	Base float64 `json:"base" yaml:"base"`
	// Noise is the half-width of the uniform noise added to Base
	Noise float64 `json:"noise" yaml:"noise"`
	// SpikeEvery multiplies every Nth sample by SpikeFactor; zero disables spikes
	SpikeEvery  int     `json:"spike_every,omitempty"  yaml:"spike_every,omitempty"`
	SpikeFactor float64 `json:"spike_factor,omitempty" yaml:"spike_factor,omitempty"`
	Seed        int64   `json:"seed" yaml:"seed"`
}

// Simulated produces Base plus uniform noise from a seeded source, so two
// sensors built from the same config emit the same sequence.
type Simulated struct {
	cfg SimulatedConfig

	mu      sync.Mutex
	rng     *rand.Rand
	samples int
}

var _ Sensor = (*Simulated)(nil)

// NewSimulated creates a simulated sensor
func NewSimulated(cfg SimulatedConfig) (*Simulated, error) {
	if cfg.ID == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: sensor id is required", errors.ErrMissingConfig),
			"Simulated", "NewSimulated", "validate id")
	}
	if cfg.Noise < 0 || cfg.SpikeEvery < 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: noise and spike_every must not be negative", errors.ErrInvalidConfig),
			"Simulated", "NewSimulated", "validate noise")
	}
	if cfg.SpikeEvery > 0 && cfg.SpikeFactor == 0 {
		cfg.SpikeFactor = 100
	}

	return &Simulated{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// ID implements Sensor
func (s *Simulated) ID() string { return s.cfg.ID }

// Sample implements Sensor
func (s *Simulated) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples++
	v := s.cfg.Base + (s.rng.Float64()*2-1)*s.cfg.Noise
	if s.cfg.SpikeEvery > 0 && s.samples%s.cfg.SpikeEvery == 0 {
		v *= s.cfg.SpikeFactor
	}
	return v
}

// Static replays a fixed sequence of values, wrapping around at the end.
type Static struct {
	id     string
	values []float64

	mu   sync.Mutex
	next int
}

var _ Sensor = (*Static)(nil)

// NewStatic creates a static sensor. With no values it always samples zero.
func NewStatic(id string, values ...float64) *Static {
	return &Static{id: id, values: append([]float64(nil), values...)}
}

// ID implements Sensor
func (s *Static) ID() string { return s.id }

// Sample implements Sensor
func (s *Static) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return v
}
