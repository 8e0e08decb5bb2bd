package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/pkg/metrics"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/view"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

// Synchronizer fetches backend collections and reconciles them into the store
type Synchronizer struct {
	client       *client.Client
	store        *state.Store
	logger       *logger.Logger
	anomalyLimit int
}

// NewSynchronizer creates a new synchronizer
func NewSynchronizer(c *client.Client, store *state.Store, log *logger.Logger, anomalyLimit int) *Synchronizer {
	if anomalyLimit <= 0 {
		anomalyLimit = client.DefaultAnomalyLimit
	}
	return &Synchronizer{
		client:       c,
		store:        store,
		logger:       log,
		anomalyLimit: anomalyLimit,
	}
}

// Store returns the store the synchronizer writes to
func (s *Synchronizer) Store() *state.Store {
	return s.store
}

// RefreshSatellites fetches the satellite collection
func (s *Synchronizer) RefreshSatellites(ctx context.Context) error {
	return s.refresh(ctx, state.ResourceSatellites, func(ctx context.Context, seq uint64) (int, error) {
		records, err := s.client.Satellites().List(ctx)
		if err != nil {
			return 0, err
		}
		sats := normalizeSatellites(records)
		s.apply(state.ResourceSatellites, s.store.ApplySatellites(seq, sats))
		return len(sats), nil
	})
}

// RefreshAnomalies fetches the most recent anomaly events
func (s *Synchronizer) RefreshAnomalies(ctx context.Context) error {
	return s.refresh(ctx, state.ResourceAnomalies, func(ctx context.Context, seq uint64) (int, error) {
		records, err := s.client.Anomalies().List(ctx, s.anomalyLimit)
		if err != nil {
			return 0, err
		}

		events, dropped := normalizeAnomalies(records)
		if len(dropped) > 0 {
			metrics.RecordDroppedRecords(len(dropped))
			s.logger.WithFields(map[string]interface{}{
				"dropped": len(dropped),
				"total":   len(records),
			}).WithError(errors.Join(dropped...)).Warn("Dropped malformed anomaly records")
		}

		s.apply(state.ResourceAnomalies, s.store.ApplyAnomalies(seq, events))
		return len(events), nil
	})
}

// RefreshStats fetches the server-side aggregate statistics
func (s *Synchronizer) RefreshStats(ctx context.Context) error {
	return s.refresh(ctx, state.ResourceStats, func(ctx context.Context, seq uint64) (int, error) {
		stats, err := s.client.Anomalies().Stats(ctx)
		if err != nil {
			return 0, err
		}
		s.apply(state.ResourceStats, s.store.ApplyStats(seq, normalizeStats(stats)))
		return 1, nil
	})
}

// RefreshAll refreshes every resource concurrently. One resource failing does not
// affect the others; the returned error joins every failure.
func (s *Synchronizer) RefreshAll(ctx context.Context) error {
	refreshers := []func(context.Context) error{
		s.RefreshSatellites,
		s.RefreshAnomalies,
		s.RefreshStats,
	}

	errs := make([]error, len(refreshers))
	var wg sync.WaitGroup
	for i, fn := range refreshers {
		wg.Add(1)
		go func(i int, fn func(context.Context) error) {
			defer wg.Done()
			errs[i] = fn(ctx)
		}(i, fn)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Refresh refreshes a single named resource
func (s *Synchronizer) Refresh(ctx context.Context, r state.Resource) error {
	switch r {
	case state.ResourceSatellites:
		return s.RefreshSatellites(ctx)
	case state.ResourceAnomalies:
		return s.RefreshAnomalies(ctx)
	case state.ResourceStats:
		return s.RefreshStats(ctx)
	default:
		return fmt.Errorf("unknown resource %q", r)
	}
}

func (s *Synchronizer) refresh(ctx context.Context, r state.Resource, fetch func(context.Context, uint64) (int, error)) (err error) {
	seq := s.store.Begin(r)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("refresh %s panicked: %v", r, p)
			s.store.Fail(r, seq, "internal", err)
			s.logger.With("resource", string(r)).ErrorWithErr(err, "Refresh panicked")
		}
	}()

	n, err := fetch(ctx, seq)
	duration := time.Since(start)

	if err != nil {
		kind := string(client.KindOf(err))
		if kind == "" {
			kind = "internal"
		}
		metrics.RecordFetch(string(r), kind, duration)
		s.store.Fail(r, seq, kind, err)
		s.logger.WithFields(map[string]interface{}{
			"resource": string(r),
			"kind":     kind,
			"duration": duration.String(),
		}).WithError(err).Warn("Refresh failed, keeping previous data")
		return fmt.Errorf("refresh %s: %w", r, err)
	}

	metrics.RecordFetch(string(r), "ok", duration)
	metrics.SetHeldItems(string(r), n)
	s.logger.WithFields(map[string]interface{}{
		"resource": string(r),
		"items":    n,
		"duration": duration.String(),
	}).Debug("Refresh completed")
	return nil
}

func (s *Synchronizer) apply(r state.Resource, applied bool) {
	if !applied {
		metrics.RecordStaleResult(string(r))
		s.logger.With("resource", string(r)).Debug("Discarded out-of-order result")
		return
	}

	if r != state.ResourceStats {
		snap := s.store.Snapshot()
		k := view.ComputeKPIs(snap.Anomalies, snap.Satellites, time.Now())
		metrics.SetKPIs(k.TotalToday, k.Critical, k.AvgScore, k.OnlineSatellites)
	}
}
