package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/pkg/metrics"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

// Monitor tracks whether the telemetry backend is reachable
type Monitor struct {
	client    *client.Client
	store     *state.Store
	logger    *logger.Logger
	connected atomic.Bool
}

// NewMonitor creates a connectivity monitor. It reports connected until the
// first probe says otherwise.
func NewMonitor(c *client.Client, store *state.Store, log *logger.Logger) *Monitor {
	m := &Monitor{
		client: c,
		store:  store,
		logger: log,
	}
	m.connected.Store(true)
	metrics.SetConnected(true)
	return m
}

// Connected returns the result of the most recent probe
func (m *Monitor) Connected() bool {
	return m.connected.Load()
}

// Check probes the backend health endpoint and records the outcome.
// It never fails: every error is folded into a disconnected result.
func (m *Monitor) Check(ctx context.Context) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			m.logger.ErrorWithErr(fmt.Errorf("%v", p), "Health probe panicked")
			ok = false
			m.record(false)
		}
	}()

	err := m.client.Health(ctx)
	ok = err == nil

	if err != nil {
		m.logger.WithFields(map[string]interface{}{
			"kind": string(client.KindOf(err)),
		}).WithError(err).Debug("Health probe failed")
	}

	m.record(ok)
	return ok
}

func (m *Monitor) record(ok bool) {
	prev := m.connected.Swap(ok)
	m.store.SetConnected(ok)
	metrics.SetConnected(ok)

	if prev == ok {
		return
	}

	metrics.RecordConnectivityTransition(ok)
	if ok {
		m.logger.With("backend", m.client.BaseURL()).Info("Telemetry backend reachable")
	} else {
		m.logger.With("backend", m.client.BaseURL()).Warn("Telemetry backend unreachable")
	}
}
