package dto

import (
	"time"

	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/worker"
)

// StatusDTO reports connectivity and sync progress in API responses
type StatusDTO struct {
	Connected  bool                                   `json:"connected"`
	CheckedAt  *time.Time                             `json:"checked_at,omitempty"`
	Resources  map[state.Resource]state.ResourceState `json:"resources"`
	Jobs       []worker.JobInfo                       `json:"jobs,omitempty"`
	Version    uint64                                 `json:"version"`
	StaleCount int                                    `json:"stale_count"`
}

// NewStatusDTO builds a status response from a store snapshot
func NewStatusDTO(snap state.Snapshot, jobs []worker.JobInfo) StatusDTO {
	out := StatusDTO{
		Connected: snap.Connected,
		Resources: snap.Resources,
		Jobs:      jobs,
		Version:   snap.Version,
	}
	if !snap.CheckedAt.IsZero() {
		t := snap.CheckedAt
		out.CheckedAt = &t
	}
	for _, st := range snap.Resources {
		if st.Stale() {
			out.StaleCount++
		}
	}
	return out
}

// RefreshResponse is returned by the manual refresh endpoint
type RefreshResponse struct {
	Status StatusDTO `json:"status"`
	Errors []string  `json:"errors,omitempty"`
}
