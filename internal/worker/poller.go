package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/pkg/metrics"
	"github.com/pratik-mahalle/satwatch/internal/services"
	"github.com/pratik-mahalle/satwatch/internal/state"
)

// ErrBackendUnavailable is returned when a refresh is requested while the backend is unreachable
var ErrBackendUnavailable = errors.New("telemetry backend unavailable")

const healthJob = "health"

// Intervals configures how often each job runs
type Intervals struct {
	Health     time.Duration
	Satellites time.Duration
	Anomalies  time.Duration
	Stats      time.Duration
}

// DefaultIntervals returns the standard polling cadence
func DefaultIntervals() Intervals {
	return Intervals{
		Health:     10 * time.Second,
		Satellites: 30 * time.Second,
		Anomalies:  10 * time.Second,
		Stats:      10 * time.Second,
	}
}

// JobInfo describes a scheduled job
type JobInfo struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Next     time.Time     `json:"next,omitempty"`
	Prev     time.Time     `json:"prev,omitempty"`
}

// Poller keeps the store fresh by probing connectivity and refreshing each
// resource on its own schedule
type Poller struct {
	syncer    *services.Synchronizer
	monitor   *services.Monitor
	intervals Intervals
	logger    *logger.Logger

	mu        sync.Mutex
	running   bool
	scheduler *cron.Cron
	entries   map[string]cron.EntryID
	cancel    context.CancelFunc
}

// NewPoller creates a new poller. Zero intervals fall back to the defaults.
func NewPoller(syncer *services.Synchronizer, monitor *services.Monitor, intervals Intervals, log *logger.Logger) *Poller {
	def := DefaultIntervals()
	if intervals.Health <= 0 {
		intervals.Health = def.Health
	}
	if intervals.Satellites <= 0 {
		intervals.Satellites = def.Satellites
	}
	if intervals.Anomalies <= 0 {
		intervals.Anomalies = def.Anomalies
	}
	if intervals.Stats <= 0 {
		intervals.Stats = def.Stats
	}

	return &Poller{
		syncer:    syncer,
		monitor:   monitor,
		intervals: intervals,
		logger:    log,
		entries:   make(map[string]cron.EntryID),
	}
}

// Start probes the backend, performs the initial load and starts the schedule.
// Jobs stop when ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller is already running")
	}

	jobCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if p.monitor.Check(jobCtx) {
		if err := p.syncer.RefreshAll(jobCtx); err != nil {
			p.logger.WithError(err).Warn("Initial load incomplete")
		}
	} else {
		p.logger.Warn("Telemetry backend unreachable at startup, waiting for it to come back")
	}

	cl := cronLogger{logger: p.logger}
	p.scheduler = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []struct {
		name     string
		interval time.Duration
		run      func()
	}{
		{healthJob, p.intervals.Health, func() { p.monitor.Check(jobCtx) }},
		{string(state.ResourceSatellites), p.intervals.Satellites, func() { p.tick(jobCtx, state.ResourceSatellites) }},
		{string(state.ResourceAnomalies), p.intervals.Anomalies, func() { p.tick(jobCtx, state.ResourceAnomalies) }},
		{string(state.ResourceStats), p.intervals.Stats, func() { p.tick(jobCtx, state.ResourceStats) }},
	}

	for _, j := range jobs {
		id, err := p.scheduler.AddFunc(fmt.Sprintf("@every %s", j.interval), j.run)
		if err != nil {
			p.cancel()
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		p.entries[j.name] = id
	}

	p.scheduler.Start()
	p.running = true

	p.logger.WithFields(map[string]interface{}{
		"health":     p.intervals.Health.String(),
		"satellites": p.intervals.Satellites.String(),
		"anomalies":  p.intervals.Anomalies.String(),
		"stats":      p.intervals.Stats.String(),
	}).Info("Poller started")

	return nil
}

// Stop halts the schedule and waits for running jobs to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	<-p.scheduler.Stop().Done()
	p.running = false
	p.entries = make(map[string]cron.EntryID)

	p.logger.Info("Poller stopped")
}

// IsRunning returns whether the schedule is active
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Jobs describes the scheduled jobs
func (p *Poller) Jobs() []JobInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := []string{healthJob, string(state.ResourceSatellites), string(state.ResourceAnomalies), string(state.ResourceStats)}
	intervals := []time.Duration{p.intervals.Health, p.intervals.Satellites, p.intervals.Anomalies, p.intervals.Stats}

	jobs := make([]JobInfo, 0, len(names))
	for i, name := range names {
		info := JobInfo{Name: name, Interval: intervals[i]}
		if id, ok := p.entries[name]; ok && p.scheduler != nil {
			e := p.scheduler.Entry(id)
			info.Next, info.Prev = e.Next, e.Prev
		}
		jobs = append(jobs, info)
	}
	return jobs
}

// RefreshNow is the user-initiated refresh: probe, then reload everything if reachable
func (p *Poller) RefreshNow(ctx context.Context) error {
	if !p.monitor.Check(ctx) {
		return ErrBackendUnavailable
	}
	return p.syncer.RefreshAll(ctx)
}

// tick refreshes one resource if the backend is reachable and reports whether it ran.
// A disconnected tick re-probes once and is skipped if the backend is still down.
func (p *Poller) tick(ctx context.Context, r state.Resource) bool {
	if ctx.Err() != nil {
		return false
	}

	if !p.monitor.Connected() && !p.monitor.Check(ctx) {
		metrics.RecordSkippedTick(string(r))
		p.logger.With("resource", string(r)).Debug("Backend unreachable, skipping refresh")
		return false
	}

	// Failures are already recorded in the store and logged by the synchronizer.
	_ = p.syncer.Refresh(ctx, r)
	return true
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
