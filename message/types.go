package message

import "fmt"

// Kind identifies the shape of a Payload.
type Kind string

// Payload kinds produced and consumed by the built-in stages
const (
	KindSeries  Kind = "series"
	KindTrend   Kind = "trend"
	KindAnomaly Kind = "anomaly"
)

// String returns the kind name
func (k Kind) String() string {
	return string(k)
}

// Payload is any value passed between pipeline stages.
type Payload interface {
	Kind() Kind
}

// Reading is one scalar sample from one sensor at one tick.
type Reading struct {
	SensorID string  `json:"sensor_id"`
	Tick     uint64  `json:"tick"`
	Value    float64 `json:"value"`
}

// String returns a compact representation for logs
func (r Reading) String() string {
	return fmt.Sprintf("%s@%d=%g", r.SensorID, r.Tick, r.Value)
}

// Series is an ordered batch of scalars; position is the time axis.
type Series []float64

// Kind implements Payload
func (Series) Kind() Kind { return KindSeries }

// Len returns the number of points
func (s Series) Len() int { return len(s) }

// Clone returns an independent copy
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// SeriesFromReadings extracts reading values in order.
func SeriesFromReadings(readings []Reading) Series {
	out := make(Series, len(readings))
	for i, r := range readings {
		out[i] = r.Value
	}
	return out
}

// TrendResult is a series together with its least-squares trend line.
// TrendLine[i] == Slope*i + Intercept and len(TrendLine) == len(OriginalData).
type TrendResult struct {
	OriginalData []float64 `json:"original_data"`
	TrendLine    []float64 `json:"trend_line"`
	Slope        float64   `json:"slope"`
	Intercept    float64   `json:"intercept"`
}

// Kind implements Payload
func (*TrendResult) Kind() Kind { return KindTrend }

// Anomaly is one flagged point.
type Anomaly struct {
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
	ZScore float64 `json:"z_score"`
}

// AnomalyResult is the final product of a tick.
//
// Degenerate is set when the series has zero variance (or no points), in which
// case no z-score is defined and Anomalies is empty. Slope and Intercept are
// the fit behind Trend and are zero when Trend is nil.
type AnomalyResult struct {
	OriginalData []float64 `json:"original_data"`
	Trend        []float64 `json:"trend,omitempty"`
	Slope        float64   `json:"slope,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`
	Anomalies    []Anomaly `json:"anomalies"`
	Mean         float64   `json:"mean"`
	StdDev       float64   `json:"std_dev"`
	Threshold    float64   `json:"threshold"`
	Degenerate   bool      `json:"degenerate"`
}

// Kind implements Payload
func (*AnomalyResult) Kind() Kind { return KindAnomaly }

// IsAnomalous reports whether the point at index i was flagged.
func (r *AnomalyResult) IsAnomalous(i int) bool {
	for _, a := range r.Anomalies {
		if a.Index == i {
			return true
		}
	}
	return false
}

// Mask returns a per-point classification, true for flagged points.
func (r *AnomalyResult) Mask() []bool {
	mask := make([]bool, len(r.OriginalData))
	for _, a := range r.Anomalies {
		if a.Index >= 0 && a.Index < len(mask) {
			mask[a.Index] = true
		}
	}
	return mask
}

// Values returns the flagged values in index order.
func (r *AnomalyResult) Values() []float64 {
	out := make([]float64, len(r.Anomalies))
	for i, a := range r.Anomalies {
		out[i] = a.Value
	}
	return out
}
