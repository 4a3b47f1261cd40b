package health

import (
	"fmt"

	"github.com/c360/gridwatch/natsclient"
	"github.com/c360/gridwatch/pipeline"
)

// DefaultErrorRateThreshold is the failed-run fraction at which a pipeline
// is reported unhealthy rather than degraded.
const DefaultErrorRateThreshold = 0.5

// FromPipeline derives a status from pipeline statistics. A pipeline whose
// last run failed is degraded, or unhealthy once its overall error rate
// reaches threshold.
func FromPipeline(name string, stats pipeline.Stats, threshold float64) Status {
	if threshold <= 0 {
		threshold = DefaultErrorRateThreshold
	}

	var status Status
	switch {
	case stats.Runs == 0:
		status = NewHealthy(name, "Awaiting first tick")
	case stats.LastError == "":
		status = NewHealthy(name, fmt.Sprintf("%d ticks processed", stats.Runs))
	case stats.ErrorRate() >= threshold:
		status = NewUnhealthy(name, sanitizeErrorMessage(stats.LastError))
	default:
		status = NewDegraded(name, sanitizeErrorMessage(stats.LastError))
	}

	return status.WithMetrics(&Metrics{
		ErrorCount:     stats.Failed,
		TicksProcessed: stats.Succeeded,
		LastActivity:   stats.LastRun,
	})
}

// FromNATS maps a connection status onto a health status.
func FromNATS(name string, status *natsclient.Status) Status {
	switch status.Status {
	case natsclient.StatusConnected:
		return NewHealthy(name, fmt.Sprintf("Connected (rtt %v)", status.RTT))
	case natsclient.StatusConnecting, natsclient.StatusReconnecting:
		return NewDegraded(name, "Connection "+status.Status.String())
	default:
		return NewUnhealthy(name, fmt.Sprintf("Connection %s after %d failures", status.Status, status.FailureCount))
	}
}
