package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/gridwatch/natsclient"
	"github.com/c360/gridwatch/pipeline"
)

func TestStatus_States(t *testing.T) {
	tests := []struct {
		status                       Status
		healthy, degraded, unhealthy bool
	}{
		{NewHealthy("a", ""), true, false, false},
		{NewDegraded("a", ""), false, true, false},
		{NewUnhealthy("a", ""), false, false, true},
		{Status{}, false, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.healthy, tt.status.IsHealthy())
		assert.Equal(t, tt.healthy, tt.status.Healthy)
		assert.Equal(t, tt.degraded, tt.status.IsDegraded())
		assert.Equal(t, tt.unhealthy, tt.status.IsUnhealthy())
	}
}

func TestStatus_WithSubStatusCopies(t *testing.T) {
	base := NewHealthy("system", "")
	a := base.WithSubStatus(NewHealthy("a", ""))
	b := base.WithSubStatus(NewDegraded("b", ""))

	assert.Empty(t, base.SubStatuses)
	require.Len(t, a.SubStatuses, 1)
	require.Len(t, b.SubStatuses, 1)
	assert.Equal(t, "a", a.SubStatuses[0].Component)
	assert.Equal(t, "b", b.SubStatuses[0].Component)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"none", nil, StateHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StateHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StateDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StateUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("system", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestMonitor(t *testing.T) {
	m := NewMonitor()
	m.Update("pipeline/b", NewDegraded("ignored", "slow"))
	m.Update("pipeline/a", Status{Status: StateHealthy, Healthy: true})

	status, ok := m.Get("pipeline/b")
	require.True(t, ok)
	assert.Equal(t, "pipeline/b", status.Component)

	a, _ := m.Get("pipeline/a")
	assert.False(t, a.Timestamp.IsZero())

	agg := m.AggregateHealth("gridwatch")
	assert.True(t, agg.IsDegraded())
	require.Len(t, agg.SubStatuses, 2)
	assert.Equal(t, "pipeline/a", agg.SubStatuses[0].Component)
	assert.Equal(t, 2, m.Count())
}

func TestFromPipeline(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		stats pipeline.Stats
		want  string
	}{
		{"never ran", pipeline.Stats{}, StateHealthy},
		{"clean", pipeline.Stats{Runs: 4, Succeeded: 4, LastRun: now}, StateHealthy},
		{"last failed", pipeline.Stats{Runs: 4, Succeeded: 3, Failed: 1, LastError: "stage 1: boom"}, StateDegraded},
		{"mostly failing", pipeline.Stats{Runs: 4, Succeeded: 1, Failed: 3, LastError: "boom"}, StateUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromPipeline("feeder", tt.stats, 0)
			assert.Equal(t, tt.want, got.Status)
			require.NotNil(t, got.Metrics)
			assert.Equal(t, tt.stats.Failed, got.Metrics.ErrorCount)
		})
	}
}

func TestFromNATS(t *testing.T) {
	assert.True(t, FromNATS("nats", &natsclient.Status{Status: natsclient.StatusConnected}).IsHealthy())
	assert.True(t, FromNATS("nats", &natsclient.Status{Status: natsclient.StatusReconnecting}).IsDegraded())

	down := FromNATS("nats", &natsclient.Status{Status: natsclient.StatusCircuitOpen, FailureCount: 5})
	assert.True(t, down.IsUnhealthy())
	assert.Contains(t, down.Message, "circuit_open after 5 failures")
}

func TestSanitizeErrorMessage(t *testing.T) {
	msg := sanitizeErrorMessage("dial nats://admin@10.0.0.4:4222 failed, password=hunter2 from 192.168.1.7:9000")
	assert.NotContains(t, msg, "hunter2")
	assert.NotContains(t, msg, "10.0.0.4")
	assert.NotContains(t, msg, "192.168.1.7")
	assert.Contains(t, msg, "[URL]")
	assert.Contains(t, msg, "[REDACTED]")
	assert.Empty(t, sanitizeErrorMessage(""))
}
