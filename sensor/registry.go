package sensor

import (
	"fmt"
	"sync"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
)

// Registry is an ordered set of sensors keyed by ID.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	sensors map[string]Sensor
}

// NewRegistry creates a registry holding sensors in the given order.
func NewRegistry(sensors ...Sensor) (*Registry, error) {
	r := &Registry{sensors: make(map[string]Sensor)}
	for _, s := range sensors {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a sensor. IDs must be unique and non-empty.
func (r *Registry) Register(s Sensor) error {
	if s == nil || s.ID() == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: sensor must have an id", errors.ErrInvalidConfig),
			"Registry", "Register", "validate sensor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sensors[s.ID()]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: duplicate sensor id %q", errors.ErrInvalidConfig, s.ID()),
			"Registry", "Register", "check duplicate")
	}
	r.sensors[s.ID()] = s
	r.order = append(r.order, s.ID())
	return nil
}

// Lookup returns the sensor registered under id or ErrUnknownSensor.
func (r *Registry) Lookup(id string) (Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sensors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSensor, id)
	}
	return s, nil
}

// IDs returns sensor IDs in registration order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered sensors
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SampleAll samples every sensor once, in registration order.
func (r *Registry) SampleAll(tick uint64) []message.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	readings := make([]message.Reading, len(r.order))
	for i, id := range r.order {
		readings[i] = message.Reading{SensorID: id, Tick: tick, Value: r.sensors[id].Sample()}
	}
	return readings
}
