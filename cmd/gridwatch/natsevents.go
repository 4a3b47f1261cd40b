package main

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/gridwatch/health"
	"github.com/c360/gridwatch/natsclient"
)

// connectionEvents counts NATS disconnects and reconnects reported through
// the client callbacks and folds them into the NATS health sub-status.
type connectionEvents struct {
	logger *slog.Logger
	now    func() time.Time

	disconnects atomic.Int64
	reconnects  atomic.Int64

	mu        sync.Mutex
	lastEvent time.Time
}

func newConnectionEvents(logger *slog.Logger) *connectionEvents {
	return &connectionEvents{logger: logger, now: time.Now}
}

func (e *connectionEvents) onDisconnect(err error) {
	n := e.disconnects.Add(1)
	e.mu.Lock()
	e.lastEvent = e.now()
	e.mu.Unlock()
	e.logger.Warn("NATS disconnected", "disconnects", n, "error", err)
}

func (e *connectionEvents) onReconnect() {
	n := e.reconnects.Add(1)
	e.mu.Lock()
	e.lastEvent = e.now()
	e.mu.Unlock()
	e.logger.Info("NATS reconnected", "reconnects", n)
}

func (e *connectionEvents) options() []natsclient.ClientOption {
	return []natsclient.ClientOption{
		natsclient.WithDisconnectCallback(e.onDisconnect),
		natsclient.WithReconnectCallback(e.onReconnect),
	}
}

// status derives the NATS sub-status from the client state. A connected
// client that is still waiting on a reconnect callback reports degraded.
func (e *connectionEvents) status(name string, cs *natsclient.Status) health.Status {
	s := health.FromNATS(name, cs)
	if e == nil {
		return s
	}

	disconnects, reconnects := e.disconnects.Load(), e.reconnects.Load()
	e.mu.Lock()
	lastEvent := e.lastEvent
	e.mu.Unlock()

	if s.IsHealthy() && disconnects > reconnects {
		s = health.NewDegraded(name, "Awaiting reconnect")
	}
	if disconnects > 0 {
		s.Message = fmt.Sprintf("%s; %d disconnects, %d reconnects", s.Message, disconnects, reconnects)
	}
	return s.WithMetrics(&health.Metrics{
		ErrorCount:   disconnects,
		LastActivity: lastEvent,
	})
}
