package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/gridwatch/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "GRIDWATCH"

// durationFields lists the section/key pairs holding durations
var durationFields = [][2]string{
	{"driver", "interval"},
	{"driver", "warn_interval"},
	{"nats", "reconnect_wait"},
	{"nats", "ping_interval"},
	{"nats", "drain_timeout"},
	{"nats", "max_backoff"},
	{"nats", "max_age"},
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables semantic validation of the merged result
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file over the defaults
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, file layers and environment overrides in that order.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		if err := ValidateLayer(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := parseDurations(raw); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "parse durations in "+path)
		}
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "merge "+path)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse decodes a single in-memory layer over the defaults. The format is
// taken from the extension of name.
func Parse(name string, data []byte) (*Config, error) {
	f, err := formatOf(name)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err), "Config", "Parse", "detect format")
	}
	raw, err := decode(data, f)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Parse", "decode")
	}
	if err := ValidateLayer(raw); err != nil {
		return nil, err
	}
	if err := parseDurations(raw); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Parse", "parse durations")
	}
	cfg, err := mergeFromMap(Default(), raw)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Parse", "merge")
	}
	return cfg, nil
}

func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	return decode(data, f)
}

func decode(data []byte, f format) (map[string]any, error) {
	var raw map[string]any
	switch f {
	case formatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// parseDurations converts duration strings in place to nanoseconds so the
// layer can be unmarshaled into time.Duration fields.
func parseDurations(raw map[string]any) error {
	for _, f := range durationFields {
		section, ok := raw[f[0]].(map[string]any)
		if !ok {
			continue
		}
		s, ok := section[f[1]].(string)
		if !ok {
			continue
		}
		d, err := parseDurationWithDays(s)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", f[0], f[1], err)
		}
		section[f[1]] = d.Nanoseconds()
	}
	return nil
}

// parseDurationWithDays parses Go durations optionally led by a day count ("2d", "1d12h")
func parseDurationWithDays(s string) (time.Duration, error) {
	days, rest, found := strings.Cut(s, "d")
	if !found {
		return time.ParseDuration(s)
	}

	n, err := strconv.ParseFloat(days, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid day count in %q: %w", s, err)
	}
	d := time.Duration(n * float64(24*time.Hour))
	if rest != "" {
		r, err := time.ParseDuration(rest)
		if err != nil {
			return 0, err
		}
		d += r
	}
	return d, nil
}

// mergeFromMap overrides only the fields present in override
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies GRIDWATCH_* environment variables
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"WINDOW_SIZE", func(v string) error {
			n, err := strconv.Atoi(v)
			cfg.Pipeline.WindowSize = n
			return err
		}},
		{"ANOMALY_THRESHOLD", func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			cfg.Pipeline.AnomalyThreshold = f
			return err
		}},
		{"INTERVAL", func(v string) error {
			d, err := parseDurationWithDays(v)
			cfg.Driver.Interval = d
			return err
		}},
		{"NATS_ENABLED", func(v string) error {
			b, err := strconv.ParseBool(v)
			cfg.NATS.Enabled = b
			return err
		}},
		{"NATS_URLS", func(v string) error {
			cfg.NATS.URLs = strings.Split(v, ",")
			return nil
		}},
		{"NATS_USERNAME", func(v string) error { cfg.NATS.Username = v; return nil }},
		{"NATS_PASSWORD", func(v string) error { cfg.NATS.Password = v; return nil }},
		{"NATS_TOKEN", func(v string) error { cfg.NATS.Token = v; return nil }},
		{"METRICS_PORT", func(v string) error {
			n, err := strconv.Atoi(v)
			cfg.Metrics.Port = n
			return err
		}},
	}

	for _, o := range overrides {
		name := l.envPrefix + "_" + o.key
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if err := validateEnvVar(name, val); err != nil {
			return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"Loader", "applyEnvOverrides", "read "+name)
		}
		if err := o.apply(val); err != nil {
			return errors.WrapInvalid(fmt.Errorf("%w: %s=%q: %v", errors.ErrInvalidConfig, name, val, err),
				"Loader", "applyEnvOverrides", "parse "+name)
		}
	}
	return nil
}
