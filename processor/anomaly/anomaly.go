// Package anomaly implements the anomaly detection stage. Points whose
// population z-score exceeds a fixed threshold in absolute value are flagged.
//
// A series with zero variance, or no points at all, has no defined z-score.
// The detector reports such input as degenerate with no anomalies instead of
// failing.
package anomaly

import (
	"context"
	"fmt"
	"math"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
	"github.com/c360/gridwatch/processor"
)

// DefaultThreshold is the threshold of DefaultConfig
const DefaultThreshold = 3.0

// StageName identifies the detector in errors and metrics
const StageName = "anomaly-detector"

// Config holds detector configuration
type Config struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Input selects the accepted payload kind. Defaults to KindTrend; KindSeries
	// runs the detector directly on a raw or smoothed series.
	Input message.Kind `json:"input,omitempty" yaml:"input,omitempty"`
}

// DefaultConfig returns the default detector configuration
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, Input: message.KindTrend}
}

// Detector flags outliers by z-score.
type Detector struct {
	threshold float64
	input     message.Kind
}

var _ processor.Stage = (*Detector)(nil)

// New creates a detector. The threshold must be finite and positive.
func New(cfg Config) (*Detector, error) {
	if cfg.Input == "" {
		cfg.Input = message.KindTrend
	}

	if math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) || cfg.Threshold <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: threshold must be a positive finite number, got %v", errors.ErrInvalidConfig, cfg.Threshold),
			"AnomalyDetector", "New", "validate threshold")
	}
	if cfg.Input != message.KindTrend && cfg.Input != message.KindSeries {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unsupported input kind %q", errors.ErrInvalidConfig, cfg.Input),
			"AnomalyDetector", "New", "validate input kind")
	}

	return &Detector{threshold: cfg.Threshold, input: cfg.Input}, nil
}

// Name implements processor.Stage
func (d *Detector) Name() string { return StageName }

// Accepts implements processor.Stage
func (d *Detector) Accepts() message.Kind { return d.input }

// Emits implements processor.Stage
func (d *Detector) Emits() message.Kind { return message.KindAnomaly }

// Threshold returns the configured z-score threshold
func (d *Detector) Threshold() float64 { return d.threshold }

// Process scores the series carried by in. A TrendResult keeps its trend
// line, slope and intercept in the result; a Series leaves Trend nil.
func (d *Detector) Process(_ context.Context, in message.Payload) (message.Payload, error) {
	if in == nil || in.Kind() != d.input {
		return nil, processor.UnexpectedPayload(StageName, d.input, in)
	}

	var (
		data      []float64
		fit       *message.TrendResult
		trendLine []float64
	)
	switch p := in.(type) {
	case *message.TrendResult:
		fit = p
		data, trendLine = p.OriginalData, p.TrendLine
	case message.Series:
		data = p
	default:
		return nil, processor.UnexpectedPayload(StageName, d.input, in)
	}

	if err := processor.CheckFinite(StageName, data); err != nil {
		return nil, err
	}

	result, err := d.Detect(data, trendLine)
	if err != nil {
		return nil, err
	}
	if fit != nil {
		result.Slope = fit.Slope
		result.Intercept = fit.Intercept
	}
	return result, nil
}

// Detect scores data against its own population mean and standard deviation.
// It fails with ErrInvalidData when the statistics overflow.
func (d *Detector) Detect(data, trendLine []float64) (*message.AnomalyResult, error) {
	result := &message.AnomalyResult{
		OriginalData: append([]float64(nil), data...),
		Trend:        append([]float64(nil), trendLine...),
		Anomalies:    []message.Anomaly{},
		Threshold:    d.threshold,
	}
	if trendLine == nil {
		result.Trend = nil
	}

	mean, stdDev := MeanStdDev(data)
	if !processor.Finite(mean, stdDev) {
		return nil, processor.Overflow("AnomalyDetector", "Detect", "mean and standard deviation")
	}
	result.Mean = mean
	result.StdDev = stdDev

	if len(data) == 0 || stdDev == 0 {
		result.Degenerate = true
		return result, nil
	}

	for i, v := range data {
		z := (v - mean) / stdDev
		if math.Abs(z) > d.threshold {
			result.Anomalies = append(result.Anomalies, message.Anomaly{Index: i, Value: v, ZScore: z})
		}
	}
	return result, nil
}

// MeanStdDev returns the mean and population standard deviation (divisor n).
// Both are zero for empty input.
func MeanStdDev(data []float64) (mean, stdDev float64) {
	if len(data) == 0 {
		return 0, 0
	}

	n := float64(len(data))
	for _, v := range data {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range data {
		d := v - mean
		variance += d * d
	}
	variance /= n

	return mean, math.Sqrt(variance)
}
