package state

import (
	"errors"
	"testing"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/domain/anomaly"
	"github.com/pratik-mahalle/satwatch/internal/domain/satellite"
)

func TestNewStoreIsOptimistic(t *testing.T) {
	s := New()
	snap := s.Snapshot()

	if !snap.Connected {
		t.Error("new store should start connected")
	}
	if snap.Satellites == nil || snap.Anomalies == nil {
		t.Error("collections should be empty, not nil")
	}
	for _, r := range Resources {
		if snap.Resources[r].Phase != PhaseIdle || snap.Resources[r].Loaded {
			t.Errorf("%s: unexpected initial state %+v", r, snap.Resources[r])
		}
	}
}

func TestApplyAndFailKeepsPreviousData(t *testing.T) {
	s := New()

	seq := s.Begin(ResourceSatellites)
	if got := s.Snapshot().Resources[ResourceSatellites].Phase; got != PhaseFetching {
		t.Fatalf("phase = %s, want fetching", got)
	}
	s.ApplySatellites(seq, []satellite.Satellite{{ID: "SAT-1", Online: true}})

	seq = s.Begin(ResourceSatellites)
	s.Fail(ResourceSatellites, seq, "timeout", errors.New("deadline exceeded"))

	snap := s.Snapshot()
	if len(snap.Satellites) != 1 || snap.Satellites[0].ID != "SAT-1" {
		t.Fatalf("previous collection lost: %+v", snap.Satellites)
	}
	st := snap.Resources[ResourceSatellites]
	if st.Phase != PhaseIdle || st.Error == nil || st.Error.Kind != "timeout" || !st.Stale() {
		t.Errorf("unexpected state after failure: %+v", st)
	}

	seq = s.Begin(ResourceSatellites)
	s.ApplySatellites(seq, nil)
	snap = s.Snapshot()
	if snap.Satellites == nil || len(snap.Satellites) != 0 {
		t.Errorf("empty success should replace with empty slice, got %+v", snap.Satellites)
	}
	if snap.Resources[ResourceSatellites].Error != nil {
		t.Error("success should clear the recorded error")
	}
}

func TestOutOfOrderResults(t *testing.T) {
	tests := []struct {
		name      string
		run       func(s *Store)
		wantScore float64
		wantErr   bool
	}{
		{
			name: "late older success is discarded",
			run: func(s *Store) {
				older := s.Begin(ResourceAnomalies)
				newer := s.Begin(ResourceAnomalies)
				s.ApplyAnomalies(newer, []anomaly.Event{{SatelliteID: "SAT-1", Score: 2}})
				if s.ApplyAnomalies(older, []anomaly.Event{{SatelliteID: "SAT-1", Score: 1}}) {
					t.Error("older result reported as applied")
				}
			},
			wantScore: 2,
		},
		{
			name: "late older failure is ignored",
			run: func(s *Store) {
				older := s.Begin(ResourceAnomalies)
				newer := s.Begin(ResourceAnomalies)
				s.ApplyAnomalies(newer, []anomaly.Event{{SatelliteID: "SAT-1", Score: 3}})
				s.Fail(ResourceAnomalies, older, "network", errors.New("refused"))
			},
			wantScore: 3,
		},
		{
			name: "newer failure does not block an older success",
			run: func(s *Store) {
				older := s.Begin(ResourceAnomalies)
				newer := s.Begin(ResourceAnomalies)
				s.Fail(ResourceAnomalies, newer, "http", errors.New("500"))
				s.ApplyAnomalies(older, []anomaly.Event{{SatelliteID: "SAT-1", Score: 4}})
			},
			wantScore: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.run(s)

			snap := s.Snapshot()
			if len(snap.Anomalies) != 1 || snap.Anomalies[0].Score != tt.wantScore {
				t.Fatalf("anomalies = %+v, want score %v", snap.Anomalies, tt.wantScore)
			}
			if st := snap.Resources[ResourceAnomalies]; st.Phase != PhaseIdle {
				t.Errorf("phase = %s, want idle once all requests settled", st.Phase)
			}
		})
	}
}

func TestResourcesAreIndependent(t *testing.T) {
	s := New()

	sat := s.Begin(ResourceSatellites)
	st := s.Begin(ResourceStats)
	s.Fail(ResourceSatellites, sat, "network", errors.New("refused"))
	s.ApplyStats(st, anomaly.Stats{TotalAnomaliesToday: 7})

	snap := s.Snapshot()
	if snap.Stats == nil || snap.Stats.TotalAnomaliesToday != 7 {
		t.Errorf("stats = %+v", snap.Stats)
	}
	if snap.Resources[ResourceStats].Error != nil {
		t.Error("stats should not inherit the satellites failure")
	}
	if snap.Resources[ResourceAnomalies].Phase != PhaseIdle {
		t.Error("anomalies should be untouched")
	}
}

func TestSetConnected(t *testing.T) {
	s := New()
	if s.SetConnected(true) {
		t.Error("true -> true should not be a change")
	}
	if !s.SetConnected(false) {
		t.Error("true -> false should be a change")
	}
	if s.Connected() {
		t.Error("Connected() should be false")
	}
	if s.Snapshot().CheckedAt.IsZero() {
		t.Error("CheckedAt should be set")
	}
}

func TestSubscribeCoalesces(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		seq := s.Begin(ResourceStats)
		s.ApplyStats(seq, anomaly.Stats{})
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal received")
	}

	select {
	case <-ch:
		t.Fatal("signals should be coalesced")
	default:
	}

	cancel()
	s.SetConnected(false)
	select {
	case <-ch:
		t.Fatal("cancelled subscription still signalled")
	default:
	}
}
