// Package trend implements the trend extraction stage, an ordinary least
// squares fit of a series against its index.
package trend

import (
	"context"
	"fmt"

	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/message"
	"github.com/c360/gridwatch/processor"
)

// StageName identifies the analyzer in errors and metrics
const StageName = "trend-analyzer"

// Analyzer fits y = slope*x + intercept with x the zero-based index.
// It holds no state between calls.
type Analyzer struct{}

var _ processor.Stage = (*Analyzer)(nil)

// New creates a trend analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Name implements processor.Stage
func (a *Analyzer) Name() string { return StageName }

// Accepts implements processor.Stage
func (a *Analyzer) Accepts() message.Kind { return message.KindSeries }

// Emits implements processor.Stage
func (a *Analyzer) Emits() message.Kind { return message.KindTrend }

// Process fits the series and returns it with its trend line.
func (a *Analyzer) Process(_ context.Context, in message.Payload) (message.Payload, error) {
	series, ok := in.(message.Series)
	if !ok {
		return nil, processor.UnexpectedPayload(StageName, message.KindSeries, in)
	}
	if err := processor.CheckFinite(StageName, series); err != nil {
		return nil, err
	}

	slope, intercept, err := Fit(series)
	if err != nil {
		return nil, err
	}

	line := make([]float64, len(series))
	for i := range line {
		line[i] = slope*float64(i) + intercept
	}
	if !processor.Finite(line...) {
		return nil, processor.Overflow("TrendAnalyzer", "Process", "trend line")
	}

	return &message.TrendResult{
		OriginalData: series.Clone(),
		TrendLine:    line,
		Slope:        slope,
		Intercept:    intercept,
	}, nil
}

// Fit returns the least squares slope and intercept of values over their index.
// It fails with ErrDivisionUndefined when the denominator n*Σx² - (Σx)² is
// zero, which is the case for fewer than two points, and with ErrInvalidData
// when the sums overflow.
func Fit(values []float64) (slope, intercept float64, err error) {
	n := float64(len(values))

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return 0, 0, errors.WrapInvalid(
			fmt.Errorf("%w: regression denominator is zero for %d points", errors.ErrDivisionUndefined, len(values)),
			"TrendAnalyzer", "Fit", "least squares")
	}

	slope = (n*sumXY - sumX*sumY) / denominator
	intercept = (sumY - slope*sumX) / n
	if !processor.Finite(slope, intercept) {
		return 0, 0, processor.Overflow("TrendAnalyzer", "Fit", "slope and intercept")
	}
	return slope, intercept, nil
}
