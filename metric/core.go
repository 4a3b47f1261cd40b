package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the pipeline-level metrics shared by every pipeline instance.
// Instances are distinguished by the "pipeline" label.
type Metrics struct {
	TicksTotal      *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	StageErrors     *prometheus.CounterVec
	AnomaliesTotal  *prometheus.CounterVec
	DegenerateTotal *prometheus.CounterVec
	BusyTotal       *prometheus.CounterVec
	WindowLength    *prometheus.GaugeVec
	LastSlope       *prometheus.GaugeVec

	NATSConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gridwatch",
				Subsystem: "pipeline",
				Name:      "ticks_total",
				Help:      "Total number of pipeline invocations by outcome",
			},
			[]string{"pipeline", "status"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gridwatch",
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Stage processing duration in seconds",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"pipeline", "stage"},
		),

		StageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gridwatch",
				Subsystem: "stage",
				Name:      "errors_total",
				Help:      "Total number of stage failures by error class",
			},
			[]string{"pipeline", "stage", "class"},
		),

		AnomaliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gridwatch",
				Subsystem: "anomaly",
				Name:      "points_total",
				Help:      "Total number of points flagged as anomalous",
			},
			[]string{"pipeline"},
		),

		DegenerateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gridwatch",
				Subsystem: "anomaly",
				Name:      "degenerate_total",
				Help:      "Total number of ticks with zero-variance input",
			},
			[]string{"pipeline"},
		),

		BusyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gridwatch",
				Subsystem: "pipeline",
				Name:      "busy_total",
				Help:      "Total number of tick invocations skipped because the pipeline was busy",
			},
			[]string{"pipeline"},
		),

		WindowLength: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gridwatch",
				Subsystem: "pipeline",
				Name:      "window_length",
				Help:      "Number of samples in the smoothing window after the last tick",
			},
			[]string{"pipeline"},
		),

		LastSlope: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gridwatch",
				Subsystem: "trend",
				Name:      "slope",
				Help:      "Fitted trend slope of the last successful tick",
			},
			[]string{"pipeline"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gridwatch",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordTick increments the tick counter for an outcome ("success", "error", "cancelled")
func (c *Metrics) RecordTick(pipeline, status string) {
	c.TicksTotal.WithLabelValues(pipeline, status).Inc()
}

// RecordStageDuration records the time one stage took
func (c *Metrics) RecordStageDuration(pipeline, stage string, duration time.Duration) {
	c.StageDuration.WithLabelValues(pipeline, stage).Observe(duration.Seconds())
}

// RecordStageError increments the stage error counter
func (c *Metrics) RecordStageError(pipeline, stage, class string) {
	c.StageErrors.WithLabelValues(pipeline, stage, class).Inc()
}

// RecordAnomalies adds flagged points for a tick
func (c *Metrics) RecordAnomalies(pipeline string, count int) {
	c.AnomaliesTotal.WithLabelValues(pipeline).Add(float64(count))
}

// RecordDegenerate counts a zero-variance tick
func (c *Metrics) RecordDegenerate(pipeline string) {
	c.DegenerateTotal.WithLabelValues(pipeline).Inc()
}

// RecordBusy counts a skipped invocation
func (c *Metrics) RecordBusy(pipeline string) {
	c.BusyTotal.WithLabelValues(pipeline).Inc()
}

// RecordWindowLength sets the window length gauge
func (c *Metrics) RecordWindowLength(pipeline string, length int) {
	c.WindowLength.WithLabelValues(pipeline).Set(float64(length))
}

// RecordSlope sets the last fitted slope
func (c *Metrics) RecordSlope(pipeline string, slope float64) {
	c.LastSlope.WithLabelValues(pipeline).Set(slope)
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}
