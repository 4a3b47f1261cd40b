package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/pipeline"
	"github.com/c360/gridwatch/pkg/tlsutil"
)

// Sensor types
const (
	SensorSimulated = "simulated" // seeded pseudo-random readings
	SensorStatic    = "static"    // fixed cycling sequence
	SensorNATS      = "nats"      // latest reading received over NATS
)

// DefaultGroup is the group of sensors that do not name one
const DefaultGroup = "grid"

// Config represents the complete application configuration
type Config struct {
	Pipeline pipeline.Config `json:"pipeline"`
	Driver   DriverConfig   `json:"driver"`
	Sensors  []SensorConfig `json:"sensors"`
	NATS     NATSConfig     `json:"nats"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// DriverConfig controls tick scheduling
type DriverConfig struct {
	Interval     time.Duration `json:"interval"`
	Workers      int           `json:"workers,omitempty"`
	QueueSize    int           `json:"queue_size,omitempty"`
	WarnInterval time.Duration `json:"warn_interval,omitempty"` // minimum spacing of failure warnings
	WarnBurst    int           `json:"warn_burst,omitempty"`
}

// SensorConfig declares one sensor. Fields beyond ID and Type apply to
// particular sensor types only.
type SensorConfig struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Group string `json:"group,omitempty"`

	// simulated
	Base        float64 `json:"base,omitempty"`
	Noise       float64 `json:"noise,omitempty"`
	SpikeEvery  int     `json:"spike_every,omitempty"`
	SpikeFactor float64 `json:"spike_factor,omitempty"`
	Seed        int64   `json:"seed,omitempty"`

	// static
	Values []float64 `json:"values,omitempty"`
}

// GroupName returns the sensor's group, defaulting to DefaultGroup
func (s SensorConfig) GroupName() string {
	if s.Group == "" {
		return DefaultGroup
	}
	return s.Group
}

// NATSConfig defines NATS connection settings for remote sensors
type NATSConfig struct {
	Enabled         bool          `json:"enabled"`
	URLs            []string      `json:"urls,omitempty"`
	Subject         string        `json:"subject,omitempty"` // subject prefix, sensor ID is appended
	MaxReconnects   int           `json:"max_reconnects,omitempty"`
	ReconnectWait   time.Duration `json:"reconnect_wait,omitempty"`
	ConnectAttempts int           `json:"connect_attempts,omitempty"`
	PingInterval    time.Duration `json:"ping_interval,omitempty"`
	DrainTimeout    time.Duration `json:"drain_timeout,omitempty"`
	MaxBackoff      time.Duration `json:"max_backoff,omitempty"` // circuit breaker backoff cap
	MaxAge          time.Duration `json:"max_age,omitempty"` // readings older than this sample as missing
	Username        string        `json:"username,omitempty"`
	Password        string        `json:"password,omitempty"`
	Token           string        `json:"token,omitempty"`

	TLS tlsutil.ClientConfig `json:"tls"`
}

// MetricsConfig controls the metrics and health endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`

	TLS tlsutil.ServerConfig `json:"tls"`
}

// Default returns the built-in configuration: two simulated sensors on a one
// second tick with the default pipeline parameters.
func Default() *Config {
	return &Config{
		Pipeline: pipeline.DefaultConfig(),
		Driver: DriverConfig{
			Interval:     time.Second,
			WarnInterval: time.Second,
			WarnBurst:    5,
		},
		Sensors: []SensorConfig{
			{ID: "sensor-1", Type: SensorSimulated, Base: 0.5, Noise: 0.5, SpikeEvery: 20, Seed: 1},
			{ID: "sensor-2", Type: SensorSimulated, Base: 0.5, Noise: 0.5, SpikeEvery: 33, Seed: 2},
		},
		NATS: NATSConfig{
			URLs:            []string{"nats://localhost:4222"},
			Subject:         "gridwatch.readings",
			MaxReconnects:   -1,
			ReconnectWait:   2 * time.Second,
			ConnectAttempts: 5,
			PingInterval:    30 * time.Second,
			DrainTimeout:    10 * time.Second,
			MaxBackoff:      time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// SensorGroup is the set of sensors sharing one pipeline
type SensorGroup struct {
	Name    string
	Sensors []SensorConfig
}

// Groups partitions sensors by group, in order of first appearance
func (c *Config) Groups() []SensorGroup {
	var groups []SensorGroup
	index := map[string]int{}
	for _, s := range c.Sensors {
		name := s.GroupName()
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, SensorGroup{Name: name})
		}
		groups[i].Sensors = append(groups[i].Sensors, s)
	}
	return groups
}

// Validate checks constraints the schema cannot express
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}

	if c.Driver.Interval <= 0 {
		return invalid(errors.ErrInvalidConfig, "driver.interval must be positive, got %v", c.Driver.Interval)
	}
	if c.Driver.Workers < 0 || c.Driver.QueueSize < 0 || c.Driver.WarnBurst < 0 {
		return invalid(errors.ErrInvalidConfig, "driver workers, queue_size and warn_burst must not be negative")
	}

	if len(c.Sensors) == 0 {
		return invalid(errors.ErrMissingConfig, "at least one sensor is required")
	}
	seen := make(map[string]struct{}, len(c.Sensors))
	for i, s := range c.Sensors {
		if err := s.validate(); err != nil {
			return invalid(err, "sensors[%d]", i)
		}
		if _, dup := seen[s.ID]; dup {
			return invalid(errors.ErrInvalidConfig, "sensors[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Type == SensorNATS && !c.NATS.Enabled {
			return invalid(errors.ErrInvalidConfig, "sensors[%d]: nats sensor %q requires nats.enabled", i, s.ID)
		}
	}

	if c.NATS.Enabled {
		if len(c.NATS.URLs) == 0 {
			return invalid(errors.ErrMissingConfig, "nats.urls is required when nats is enabled")
		}
		if strings.ContainsAny(c.NATS.Subject, "*> ") {
			return invalid(errors.ErrInvalidConfig, "nats.subject %q must not contain wildcards or spaces", c.NATS.Subject)
		}
		if c.NATS.PingInterval < 0 || c.NATS.DrainTimeout < 0 || c.NATS.ReconnectWait < 0 {
			return invalid(errors.ErrInvalidConfig, "nats ping_interval, drain_timeout and reconnect_wait must not be negative")
		}
		if c.NATS.MaxBackoff != 0 && c.NATS.MaxBackoff < time.Second {
			return invalid(errors.ErrInvalidConfig, "nats.max_backoff must be at least 1s, got %v", c.NATS.MaxBackoff)
		}
		if err := c.NATS.TLS.Validate(); err != nil {
			return invalid(err, "nats.tls")
		}
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return invalid(errors.ErrInvalidConfig, "metrics.port %d out of range", c.Metrics.Port)
	}
	if c.Metrics.Enabled {
		if err := c.Metrics.TLS.Validate(); err != nil {
			return invalid(err, "metrics.tls")
		}
	}

	return nil
}

func (s SensorConfig) validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: id is required", errors.ErrMissingConfig)
	}
	if strings.ContainsAny(s.ID, ".*> ") {
		return fmt.Errorf("%w: id %q must not contain dots, wildcards or spaces", errors.ErrInvalidConfig, s.ID)
	}

	switch s.Type {
	case SensorSimulated:
		for _, v := range []float64{s.Base, s.Noise, s.SpikeFactor} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: simulated sensor %q has a non-finite parameter", errors.ErrInvalidConfig, s.ID)
			}
		}
		if s.Noise < 0 || s.SpikeEvery < 0 || s.SpikeFactor < 0 {
			return fmt.Errorf("%w: simulated sensor %q has a negative parameter", errors.ErrInvalidConfig, s.ID)
		}
	case SensorStatic:
		if len(s.Values) == 0 {
			return fmt.Errorf("%w: static sensor %q needs values", errors.ErrMissingConfig, s.ID)
		}
	case SensorNATS:
	default:
		return fmt.Errorf("%w: unknown sensor type %q", errors.ErrInvalidConfig, s.Type)
	}
	return nil
}

func invalid(err error, format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)), "Config", "Validate", "configuration check")
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Redacted returns a copy with credentials masked, suitable for logging.
func (c *Config) Redacted() *Config {
	r := c.Clone()
	for _, s := range []*string{&r.NATS.Password, &r.NATS.Token} {
		if *s != "" {
			*s = "****"
		}
	}
	return r
}

// String returns a JSON representation of the config with credentials masked
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
