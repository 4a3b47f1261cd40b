package window

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/gridwatch/metric"
)

// windowMetrics holds Prometheus metrics for one window instance.
type windowMetrics struct {
	writes      prometheus.Counter
	drops       prometheus.Counter
	size        prometheus.Gauge
	utilization prometheus.Gauge
}

func newWindowMetrics(registry *metric.MetricsRegistry, prefix string) (*windowMetrics, error) {
	labels := prometheus.Labels{"component": prefix}

	m := &windowMetrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "gridwatch",
			Subsystem:   "window",
			Name:        "writes_total",
			ConstLabels: labels,
			Help:        "Total number of samples appended to the window",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "gridwatch",
			Subsystem:   "window",
			Name:        "evictions_total",
			ConstLabels: labels,
			Help:        "Total number of samples evicted from the window",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gridwatch",
			Subsystem:   "window",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of samples in the window",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gridwatch",
			Subsystem:   "window",
			Name:        "utilization",
			ConstLabels: labels,
			Help:        "Window fill ratio (0.0 to 1.0)",
		}),
	}

	if err := registry.RegisterCounter(prefix, "window_writes", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "window_evictions", m.drops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "window_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "window_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *windowMetrics) recordPush(written, dropped, size, capacity int) {
	m.writes.Add(float64(written))
	m.drops.Add(float64(dropped))
	m.updateSize(size, capacity)
}

func (m *windowMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
