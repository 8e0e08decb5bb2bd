// Package state holds the synchronised backend collections in memory.
//
// Collections are replaced wholesale on every successful refresh and are never
// mutated in place, so slices handed out by Snapshot stay consistent for as long
// as the caller holds them.
package state

import (
	"sync"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/domain/anomaly"
	"github.com/pratik-mahalle/satwatch/internal/domain/satellite"
)

// Resource names a synchronised backend collection
type Resource string

// Synchronised resources
const (
	ResourceSatellites Resource = "satellites"
	ResourceAnomalies  Resource = "anomalies"
	ResourceStats      Resource = "stats"
)

// Resources lists every synchronised resource in display order
var Resources = []Resource{ResourceSatellites, ResourceAnomalies, ResourceStats}

// Phase is the fetch phase of a resource
type Phase string

// Resource phases
const (
	PhaseIdle     Phase = "idle"
	PhaseFetching Phase = "fetching"
)

// SyncError describes the most recent failed refresh of a resource
type SyncError struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ResourceState is the externally visible state of one resource
type ResourceState struct {
	Phase     Phase      `json:"phase"`
	Loaded    bool       `json:"loaded"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
	Error     *SyncError `json:"error,omitempty"`
}

// Stale reports whether the held data predates a failed refresh
func (s ResourceState) Stale() bool {
	return s.Loaded && s.Error != nil
}

// Snapshot is a consistent, read-only view of the store
type Snapshot struct {
	Satellites []satellite.Satellite      `json:"satellites"`
	Anomalies  []anomaly.Event            `json:"anomalies"`
	Stats      *anomaly.Stats             `json:"stats,omitempty"`
	Connected  bool                       `json:"connected"`
	CheckedAt  time.Time                  `json:"checked_at,omitempty"`
	Resources  map[Resource]ResourceState `json:"resources"`
	Version    uint64                     `json:"version"`
}

type tracker struct {
	issued   uint64
	applied  uint64
	inFlight int
	state    ResourceState
}

// Store is the in-memory home of everything fetched from the backend
type Store struct {
	mu         sync.RWMutex
	satellites []satellite.Satellite
	anomalies  []anomaly.Event
	stats      *anomaly.Stats
	connected  bool
	checkedAt  time.Time
	trackers   map[Resource]*tracker
	version    uint64

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int

	now func() time.Time
}

// New creates an empty store. Connectivity starts optimistic.
func New() *Store {
	s := &Store{
		satellites: []satellite.Satellite{},
		anomalies:  []anomaly.Event{},
		connected:  true,
		trackers:   make(map[Resource]*tracker, len(Resources)),
		subs:       make(map[int]chan struct{}),
		now:        time.Now,
	}
	for _, r := range Resources {
		s.trackers[r] = &tracker{state: ResourceState{Phase: PhaseIdle}}
	}
	return s
}

// Begin marks the start of a refresh and returns its sequence number
func (s *Store) Begin(r Resource) uint64 {
	s.mu.Lock()
	t := s.trackers[r]
	t.issued++
	t.inFlight++
	t.state.Phase = PhaseFetching
	seq := t.issued
	s.version++
	s.mu.Unlock()

	s.notify()
	return seq
}

// ApplySatellites replaces the satellite collection unless a newer result was
// already applied. It reports whether the result was applied.
func (s *Store) ApplySatellites(seq uint64, satellites []satellite.Satellite) bool {
	if satellites == nil {
		satellites = []satellite.Satellite{}
	}
	return s.settle(ResourceSatellites, seq, nil, func() { s.satellites = satellites })
}

// ApplyAnomalies replaces the anomaly collection unless a newer result was already applied
func (s *Store) ApplyAnomalies(seq uint64, events []anomaly.Event) bool {
	if events == nil {
		events = []anomaly.Event{}
	}
	return s.settle(ResourceAnomalies, seq, nil, func() { s.anomalies = events })
}

// ApplyStats replaces the server statistics unless a newer result was already applied
func (s *Store) ApplyStats(seq uint64, stats anomaly.Stats) bool {
	return s.settle(ResourceStats, seq, nil, func() { s.stats = &stats })
}

// Fail records a failed refresh. The held collection is left untouched.
// A failure that is older than the data currently held is ignored.
func (s *Store) Fail(r Resource, seq uint64, kind string, err error) bool {
	return s.settle(r, seq, &SyncError{Kind: kind, Message: err.Error()}, nil)
}

func (s *Store) settle(r Resource, seq uint64, failure *SyncError, apply func()) bool {
	s.mu.Lock()
	t := s.trackers[r]
	if t.inFlight > 0 {
		t.inFlight--
	}
	if t.inFlight == 0 {
		t.state.Phase = PhaseIdle
	}

	current := seq > t.applied
	if current {
		if failure != nil {
			failure.At = s.now()
			t.state.Error = failure
		} else {
			t.applied = seq
			apply()
			t.state.Error = nil
			t.state.Loaded = true
			t.state.UpdatedAt = s.now()
		}
	}
	s.version++
	s.mu.Unlock()

	s.notify()
	return current
}

// SetConnected records the outcome of a health probe and reports whether it changed
func (s *Store) SetConnected(connected bool) bool {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.checkedAt = s.now()
	if changed {
		s.version++
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return changed
}

// Connected returns the last known connectivity
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Snapshot returns the current collections and states
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make(map[Resource]ResourceState, len(s.trackers))
	for r, t := range s.trackers {
		st := t.state
		if st.Error != nil {
			e := *st.Error
			st.Error = &e
		}
		resources[r] = st
	}

	var stats *anomaly.Stats
	if s.stats != nil {
		cp := *s.stats
		stats = &cp
	}

	return Snapshot{
		Satellites: s.satellites,
		Anomalies:  s.anomalies,
		Stats:      stats,
		Connected:  s.connected,
		CheckedAt:  s.checkedAt,
		Resources:  resources,
		Version:    s.version,
	}
}

// Subscribe returns a channel that receives a signal after every change.
// Signals are coalesced: a slow reader sees one pending signal, never a backlog.
// The returned function cancels the subscription.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
