// Package view derives presentation data from synchronised state.
// Every function here is pure: the same inputs always give the same outputs.
package view

import (
	"strings"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/domain/alert"
	"github.com/pratik-mahalle/satwatch/internal/domain/anomaly"
	"github.com/pratik-mahalle/satwatch/internal/domain/satellite"
	"github.com/pratik-mahalle/satwatch/internal/state"
)

const (
	// MaxAlerts caps the alert list
	MaxAlerts = 5

	// MaxHistoryRows caps the history table
	MaxHistoryRows = 15

	maxSummaryIssues = 2
)

// KPIs are aggregates computed locally from the filtered events
type KPIs struct {
	TotalToday       int     `json:"total_today"`
	Critical         int     `json:"critical"`
	AvgScore         float64 `json:"avg_score"`
	OnlineSatellites int     `json:"online_satellites"`
}

// SeriesPoint is one point of the anomaly score chart
type SeriesPoint struct {
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	SatelliteID string  `json:"satellite_id"`
}

// HistoryRow is one row of the recent anomaly table
type HistoryRow struct {
	Key         string           `json:"key"`
	Time        string           `json:"time"`
	SatelliteID string           `json:"satellite_id"`
	Severity    anomaly.Severity `json:"severity"`
	Score       float64          `json:"score"`
	Issues      []string         `json:"issues"`
}

// Dashboard bundles everything a consumer needs to render one frame
type Dashboard struct {
	Filter      FilterState                            `json:"filter"`
	Connected   bool                                   `json:"connected"`
	Resources   map[state.Resource]state.ResourceState `json:"resources"`
	Satellites  []satellite.Satellite                  `json:"satellites"`
	Anomalies   []anomaly.Event                        `json:"anomalies"`
	Alerts      []alert.Alert                          `json:"alerts"`
	KPIs        KPIs                                   `json:"kpis"`
	ServerStats *anomaly.Stats                         `json:"server_stats,omitempty"`
	Series      []SeriesPoint                          `json:"series"`
	History     []HistoryRow                           `json:"history"`
	GeneratedAt time.Time                              `json:"generated_at"`
	Version     uint64                                 `json:"version"`
}

// DeriveAlerts projects the first non-normal events into alerts. Upstream order
// is kept as-is; events are assumed to arrive newest first.
func DeriveAlerts(events []anomaly.Event) []alert.Alert {
	alerts := make([]alert.Alert, 0, MaxAlerts)
	for _, ev := range events {
		if ev.Severity.IsNormal() {
			continue
		}

		severity := alert.SeverityHigh
		if ev.Severity == anomaly.SeverityCritical {
			severity = alert.SeverityCritical
		}

		alerts = append(alerts, alert.Alert{
			ID:          ev.Key(),
			SatelliteID: ev.SatelliteID,
			Issue:       summarize(ev.Issues),
			Severity:    severity,
			Score:       ev.Score,
			Timestamp:   clock(ev, time.TimeOnly),
		})
		if len(alerts) == MaxAlerts {
			break
		}
	}
	return alerts
}

func summarize(issues []string) string {
	if len(issues) == 0 {
		return alert.DefaultSummary
	}
	if len(issues) > maxSummaryIssues {
		issues = issues[:maxSummaryIssues]
	}
	return strings.Join(issues, ", ")
}

// ComputeKPIs aggregates the filtered events. The online count covers every
// satellite regardless of the filter.
func ComputeKPIs(filtered []anomaly.Event, satellites []satellite.Satellite, now time.Time) KPIs {
	today := now.UTC().Format(time.DateOnly)

	k := KPIs{OnlineSatellites: satellite.CountOnline(satellites)}
	var sum float64
	for _, ev := range filtered {
		if ev.Date == today {
			k.TotalToday++
		}
		if ev.Severity == anomaly.SeverityCritical {
			k.Critical++
		}
		sum += ev.Score
	}
	if len(filtered) > 0 {
		k.AvgScore = sum / float64(len(filtered))
	}
	return k
}

// ScoreSeries returns one chart point per filtered event, oldest first
func ScoreSeries(filtered []anomaly.Event) []SeriesPoint {
	points := make([]SeriesPoint, len(filtered))
	for i, ev := range filtered {
		points[len(filtered)-1-i] = SeriesPoint{
			Label:       clock(ev, "15:04"),
			Score:       ev.Score,
			SatelliteID: ev.SatelliteID,
		}
	}
	return points
}

// HistoryRows returns the first rows of the filtered events for tabular display
func HistoryRows(filtered []anomaly.Event) []HistoryRow {
	n := len(filtered)
	if n > MaxHistoryRows {
		n = MaxHistoryRows
	}
	rows := make([]HistoryRow, n)
	for i, ev := range filtered[:n] {
		rows[i] = HistoryRow{
			Key:         ev.Key(),
			Time:        clock(ev, time.TimeOnly),
			SatelliteID: ev.SatelliteID,
			Severity:    ev.Severity,
			Score:       ev.Score,
			Issues:      ev.Issues,
		}
	}
	return rows
}

// Derive builds the dashboard for snap under filter f at time now
func Derive(snap state.Snapshot, f FilterState, now time.Time) Dashboard {
	f = f.Normalize()
	filtered := Filter(snap.Anomalies, f)

	return Dashboard{
		Filter:      f,
		Connected:   snap.Connected,
		Resources:   snap.Resources,
		Satellites:  snap.Satellites,
		Anomalies:   filtered,
		Alerts:      DeriveAlerts(filtered),
		KPIs:        ComputeKPIs(filtered, snap.Satellites, now),
		ServerStats: snap.Stats,
		Series:      ScoreSeries(filtered),
		History:     HistoryRows(filtered),
		GeneratedAt: now.UTC(),
		Version:     snap.Version,
	}
}

// clock formats the event time in UTC, falling back to the raw timestamp
func clock(ev anomaly.Event, layout string) string {
	if ev.Time.IsZero() {
		return ev.Timestamp
	}
	return ev.Time.UTC().Format(layout)
}
