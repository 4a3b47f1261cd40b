package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/gridwatch/errors"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	require.NoError(t, registry.RegisterCounter("test-service", "test_counter", counter))
	counter.Inc()

	assert.True(t, gatheredNames(t, registry)["test_counter"])
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "dup"})
	require.NoError(t, registry.RegisterGauge("svc", "dup_gauge", gauge))

	err := registry.RegisterGauge("svc", "dup_gauge", gauge)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	other := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "dup"})
	err = registry.RegisterGauge("other-svc", "dup_gauge", other)
	require.Error(t, err, "prometheus should reject a second collector with the same name")
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "vec_total", Help: "vec"}, []string{"l"})
	require.NoError(t, registry.RegisterCounterVec("svc", "vec", vec))
	vec.WithLabelValues("a").Inc()

	assert.True(t, registry.Unregister("svc", "vec"))
	assert.False(t, registry.Unregister("svc", "vec"))
	assert.False(t, gatheredNames(t, registry)["vec_total"])

	// Slot is free again after unregistering.
	require.NoError(t, registry.RegisterCounterVec("svc", "vec", vec))
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordTick("grid-a", "success")
	m.RecordTick("grid-a", "success")
	m.RecordTick("grid-a", "error")
	m.RecordStageError("grid-a", "trend", "invalid")
	m.RecordAnomalies("grid-a", 2)
	m.RecordDegenerate("grid-a")
	m.RecordBusy("grid-a")
	m.RecordWindowLength("grid-a", 3)
	m.RecordSlope("grid-a", 1.5)
	m.RecordStageDuration("grid-a", "noise", time.Millisecond)
	m.RecordNATSStatus(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TicksTotal.WithLabelValues("grid-a", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksTotal.WithLabelValues("grid-a", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageErrors.WithLabelValues("grid-a", "trend", "invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues("grid-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegenerateTotal.WithLabelValues("grid-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusyTotal.WithLabelValues("grid-a")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WindowLength.WithLabelValues("grid-a")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.LastSlope.WithLabelValues("grid-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))

	names := gatheredNames(t, registry)
	assert.True(t, names["gridwatch_pipeline_ticks_total"])
	assert.True(t, names["gridwatch_stage_duration_seconds"])
}

func TestCoreMetrics_StageDurationHistogram(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordStageDuration("grid-a", "noise", 2*time.Millisecond)
	m.RecordStageDuration("grid-a", "noise", 4*time.Millisecond)
	m.RecordStageDuration("grid-a", "trend", time.Millisecond)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "gridwatch_stage_duration_seconds" {
			family = mf
		}
	}
	require.NotNil(t, family, "stage duration histogram should be gathered")
	assert.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())

	counts := make(map[string]uint64)
	for _, series := range family.GetMetric() {
		for _, label := range series.GetLabel() {
			if label.GetName() == "stage" {
				counts[label.GetValue()] = series.GetHistogram().GetSampleCount()
			}
		}
	}
	assert.Equal(t, map[string]uint64{"noise": 2, "trend": 1}, counts)
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordTick("grid-a", "success")

	var unhealthy atomic.Bool
	srv := NewServer(0, "", registry, func() (any, bool) {
		return map[string]string{"status": "healthy"}, !unhealthy.Load()
	})
	assert.Equal(t, "http://localhost:9090/metrics", srv.Address())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "gridwatch_pipeline_ticks_total"))

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	unhealthy.Store(true)
	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	srv := NewServer(0, "", nil, nil)
	err := srv.Start()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.NoError(t, srv.Stop())
}
