package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time view of a pipeline's invocation history.
type Stats struct {
	Runs         int64         `json:"runs"`
	Succeeded    int64         `json:"succeeded"`
	Failed       int64         `json:"failed"`
	Busy         int64         `json:"busy"`
	Anomalies    int64         `json:"anomalies"`
	LastError    string        `json:"last_error,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastRun      time.Time     `json:"last_run"`
}

// ErrorRate returns the fraction of failed runs
func (s Stats) ErrorRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Runs)
}

type statistics struct {
	runs      atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	busy      atomic.Int64
	anomalies atomic.Int64

	mu           sync.RWMutex
	lastError    string
	lastDuration time.Duration
	lastRun      time.Time
}

func (s *statistics) record(start time.Time, anomalies int, err error) {
	s.runs.Add(1)
	if err != nil {
		s.failed.Add(1)
	} else {
		s.succeeded.Add(1)
		s.anomalies.Add(int64(anomalies))
	}

	s.mu.Lock()
	s.lastRun = start
	s.lastDuration = time.Since(start)
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()
}

func (s *statistics) snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Runs:         s.runs.Load(),
		Succeeded:    s.succeeded.Load(),
		Failed:       s.failed.Load(),
		Busy:         s.busy.Load(),
		Anomalies:    s.anomalies.Load(),
		LastError:    s.lastError,
		LastDuration: s.lastDuration,
		LastRun:      s.lastRun,
	}
}
