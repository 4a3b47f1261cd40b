package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/pipeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, pipeline.DefaultConfig(), cfg.Pipeline)
	assert.Equal(t, time.Second, cfg.Driver.Interval)
	assert.Len(t, cfg.Sensors, 2)
	assert.False(t, cfg.NATS.Enabled)
}

func TestLoader_YAMLLayer(t *testing.T) {
	path := writeFile(t, "gridwatch.yaml", `
pipeline:
  window_size: 3
driver:
  interval: 250ms
sensors:
  - id: feeder-a
    type: static
    group: east
    values: [1, 2, 3]
  - id: feeder-b
    type: simulated
    base: 230
    noise: 2
    group: east
  - id: tie
    type: static
    values: [5]
`)

	loader := NewLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pipeline.WindowSize)
	assert.Equal(t, 3.0, cfg.Pipeline.AnomalyThreshold, "untouched field keeps its default")
	assert.Equal(t, 250*time.Millisecond, cfg.Driver.Interval)
	assert.Equal(t, time.Second, cfg.Driver.WarnInterval)
	require.Len(t, cfg.Sensors, 3)
	assert.Equal(t, []float64{1, 2, 3}, cfg.Sensors[0].Values)

	groups := cfg.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "east", groups[0].Name)
	assert.Len(t, groups[0].Sensors, 2)
	assert.Equal(t, DefaultGroup, groups[1].Name)
}

func TestLoader_JSONLayersOverride(t *testing.T) {
	base := writeFile(t, "base.json", `{
		"pipeline": {"window_size": 8, "anomaly_threshold": 2.5},
		"nats": {"enabled": true, "urls": ["nats://a:4222"], "reconnect_wait": "1d2h",
			"ping_interval": "15s", "drain_timeout": "3s", "max_backoff": "2m"},
		"sensors": [{"id": "r1", "type": "nats"}]
	}`)
	local := writeFile(t, "local.json", `{
		"pipeline": {"window_size": 4},
		"nats": {"urls": ["nats://b:4222", "nats://c:4222"]}
	}`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(local)
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pipeline.WindowSize)
	assert.Equal(t, 2.5, cfg.Pipeline.AnomalyThreshold)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, []string{"nats://b:4222", "nats://c:4222"}, cfg.NATS.URLs)
	assert.Equal(t, 26*time.Hour, cfg.NATS.ReconnectWait)
	assert.Equal(t, 15*time.Second, cfg.NATS.PingInterval)
	assert.Equal(t, 3*time.Second, cfg.NATS.DrainTimeout)
	assert.Equal(t, 2*time.Minute, cfg.NATS.MaxBackoff)
	assert.Equal(t, "gridwatch.readings", cfg.NATS.Subject)
}

func TestLoader_SchemaRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown field", "a.json", `{"pipeline": {"window": 3}}`},
		{"wrong type", "b.json", `{"pipeline": {"window_size": "three"}}`},
		{"zero window", "c.yaml", "pipeline:\n  window_size: 0\n"},
		{"bad duration", "d.json", `{"driver": {"interval": "soon"}}`},
		{"unknown sensor type", "e.yaml", "sensors:\n  - id: x\n    type: laser\n"},
		{"sensor without id", "f.json", `{"sensors": [{"type": "static"}]}`},
		{"bad metrics path", "g.json", `{"metrics": {"path": "metrics"}}`},
		{"bad tls version", "h.yaml", "nats:\n  tls:\n    min_version: \"1.0\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadFile(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestLoader_FileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewLoader().LoadFile(writeFile(t, "cfg.toml", "x = 1"))
		require.Error(t, err)
	})
	t.Run("malformed json", func(t *testing.T) {
		_, err := NewLoader().LoadFile(writeFile(t, "bad.json", `{"pipeline": {`))
		require.Error(t, err)
	})
	t.Run("traversal", func(t *testing.T) {
		_, err := NewLoader().LoadFile("../../etc/gridwatch.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path traversal")
	})
	t.Run("empty yaml", func(t *testing.T) {
		cfg, err := NewLoader().LoadFile(writeFile(t, "empty.yaml", ""))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("GRIDWATCH_WINDOW_SIZE", "9")
	t.Setenv("GRIDWATCH_ANOMALY_THRESHOLD", "2")
	t.Setenv("GRIDWATCH_INTERVAL", "5s")
	t.Setenv("GRIDWATCH_NATS_ENABLED", "true")
	t.Setenv("GRIDWATCH_NATS_URLS", "nats://x:1,nats://y:2")
	t.Setenv("GRIDWATCH_NATS_TOKEN", "s3cret")
	t.Setenv("GRIDWATCH_METRICS_PORT", "9999")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Pipeline.WindowSize)
	assert.Equal(t, 2.0, cfg.Pipeline.AnomalyThreshold)
	assert.Equal(t, 5*time.Second, cfg.Driver.Interval)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, []string{"nats://x:1", "nats://y:2"}, cfg.NATS.URLs)
	assert.Equal(t, "s3cret", cfg.NATS.Token)
	assert.Equal(t, 9999, cfg.Metrics.Port)
	assert.NotContains(t, cfg.String(), "s3cret")
}

func TestLoader_EnvOverrideInvalid(t *testing.T) {
	t.Setenv("GRIDWATCH_WINDOW_SIZE", "five")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "GRIDWATCH_WINDOW_SIZE")
}

func TestLoader_EnvZeroWindowRejected(t *testing.T) {
	t.Setenv("GRIDWATCH_WINDOW_SIZE", "0")

	l := NewLoader()
	l.EnableValidation(true)
	_, err := l.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "window_size")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Pipeline.WindowSize = 0 }},
		{"negative window", func(c *Config) { c.Pipeline.WindowSize = -1 }},
		{"zero threshold", func(c *Config) { c.Pipeline.AnomalyThreshold = 0 }},
		{"negative threshold", func(c *Config) { c.Pipeline.AnomalyThreshold = -3 }},
		{"zero interval", func(c *Config) { c.Driver.Interval = 0 }},
		{"negative workers", func(c *Config) { c.Driver.Workers = -1 }},
		{"no sensors", func(c *Config) { c.Sensors = nil }},
		{"duplicate sensor", func(c *Config) { c.Sensors[1].ID = c.Sensors[0].ID }},
		{"dotted id", func(c *Config) { c.Sensors[0].ID = "a.b" }},
		{"unknown type", func(c *Config) { c.Sensors[0].Type = "laser" }},
		{"static without values", func(c *Config) { c.Sensors[0] = SensorConfig{ID: "s", Type: SensorStatic} }},
		{"negative noise", func(c *Config) { c.Sensors[0].Noise = -1 }},
		{"nats sensor without nats", func(c *Config) { c.Sensors[0].Type = SensorNATS }},
		{"nats without urls", func(c *Config) { c.NATS.Enabled = true; c.NATS.URLs = nil }},
		{"wildcard subject", func(c *Config) { c.NATS.Enabled = true; c.NATS.Subject = "readings.>" }},
		{"negative ping interval", func(c *Config) { c.NATS.Enabled = true; c.NATS.PingInterval = -time.Second }},
		{"sub-second max backoff", func(c *Config) { c.NATS.Enabled = true; c.NATS.MaxBackoff = 10 * time.Millisecond }},
		{"metrics port", func(c *Config) { c.Metrics.Port = 0 }},
		{"nats tls cert without key", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.TLS.Enabled = true
			c.NATS.TLS.CertFile = "client.pem"
		}},
		{"metrics tls without files", func(c *Config) { c.Metrics.TLS.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err), "got %v", err)
		})
	}
}

func TestConfig_CloneAndRedact(t *testing.T) {
	cfg := Default()
	cfg.NATS.Password = "hunter2"

	clone := cfg.Clone()
	clone.Sensors[0].ID = "changed"
	assert.Equal(t, "sensor-1", cfg.Sensors[0].ID)

	red := cfg.Redacted()
	assert.Equal(t, "****", red.NATS.Password)
	assert.Equal(t, "hunter2", cfg.NATS.Password)
	assert.Empty(t, red.NATS.Token)
}

func TestParse(t *testing.T) {
	cfg, err := Parse("inline.yaml", []byte("driver:\n  interval: 2s\n"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Driver.Interval)

	_, err = Parse("inline.ini", []byte("x"))
	assert.True(t, errors.IsConfiguration(err))
}

func TestParseDurationWithDays(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"2d", 48 * time.Hour, false},
		{"0.5d", 12 * time.Hour, false},
		{"1d30m", 24*time.Hour + 30*time.Minute, false},
		{"xd", 0, true},
		{"1d?", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDurationWithDays(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_Embedded(t *testing.T) {
	assert.Contains(t, string(Schema()), `"additionalProperties": false`)
	require.NoError(t, ValidateLayer(map[string]any{}))
}
