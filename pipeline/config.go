package pipeline

import (
	"fmt"
	"math"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/processor/anomaly"
	"github.com/c360/gridwatch/processor/noise"
)

// Config is the construction surface of the default pipeline.
type Config struct {
	WindowSize       int     `json:"window_size"       yaml:"window_size"`
	AnomalyThreshold float64 `json:"anomaly_threshold" yaml:"anomaly_threshold"`
}

// DefaultConfig returns window size 5 and threshold 3.0
func DefaultConfig() Config {
	return Config{
		WindowSize:       noise.DefaultWindowSize,
		AnomalyThreshold: anomaly.DefaultThreshold,
	}
}

// Validate checks the configuration. The window size must be a positive
// integer and the threshold a positive finite number.
func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: window_size must be positive, got %d", errors.ErrInvalidConfig, c.WindowSize),
			"Pipeline", "Validate", "check window_size")
	}
	if math.IsNaN(c.AnomalyThreshold) || math.IsInf(c.AnomalyThreshold, 0) || c.AnomalyThreshold <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: anomaly_threshold must be a positive finite number, got %v",
				errors.ErrInvalidConfig, c.AnomalyThreshold),
			"Pipeline", "Validate", "check anomaly_threshold")
	}
	return nil
}
