package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pratik-mahalle/satwatch/internal/domain/anomaly"
	"github.com/pratik-mahalle/satwatch/internal/domain/satellite"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

var errNoIdentity = errors.New("record has neither satellite_id nor timestamp")

// normalizeAnomaly converts a wire record into an anomaly event.
// Missing score becomes 0 and missing issues become an empty list.
func normalizeAnomaly(rec client.AnomalyRecord) (anomaly.Event, error) {
	if rec.SatelliteID == "" && rec.Timestamp == "" {
		return anomaly.Event{}, errNoIdentity
	}

	raw := rec.Issues
	if isAbsent(raw) {
		raw = rec.Issue
	}
	issues, err := parseIssues(raw)
	if err != nil {
		return anomaly.Event{}, err
	}

	var score float64
	if rec.Score != nil {
		score = *rec.Score
	}

	ts, date := anomaly.ParseTimestamp(rec.Timestamp)

	return anomaly.Event{
		ID:          rawID(rec.ID),
		SatelliteID: rec.SatelliteID,
		Timestamp:   rec.Timestamp,
		Time:        ts,
		Date:        date,
		Severity:    anomaly.NormalizeSeverity(rec.Severity),
		Score:       score,
		Issues:      issues,
	}, nil
}

// parseIssues accepts either a JSON array of strings or a comma-joined string
func parseIssues(raw json.RawMessage) ([]string, error) {
	if isAbsent(raw) {
		return []string{}, nil
	}

	switch bytes.TrimSpace(raw)[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("invalid issue string: %w", err)
		}
		return anomaly.SplitIssues(s), nil
	case '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("invalid issue list: %w", err)
		}
		return anomaly.CleanIssues(list), nil
	default:
		return nil, fmt.Errorf("issue field must be a string or a list, got %s", raw)
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func rawID(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strconv.Quote(string(raw))
}

// normalizeAnomalies converts a page of records, dropping those that cannot be normalised
func normalizeAnomalies(records []client.AnomalyRecord) ([]anomaly.Event, []error) {
	events := make([]anomaly.Event, 0, len(records))
	var dropped []error
	for i, rec := range records {
		ev, err := normalizeAnomaly(rec)
		if err != nil {
			dropped = append(dropped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}
	return events, dropped
}

func normalizeSatellites(records []client.Satellite) []satellite.Satellite {
	sats := make([]satellite.Satellite, 0, len(records))
	for _, rec := range records {
		sat := satellite.Satellite{
			ID:             rec.SatelliteID,
			Online:         rec.IsOnline,
			LatestSeverity: string(anomaly.NormalizeSeverity(rec.LatestSeverity)),
		}
		if rec.LastTelemetry != nil {
			if ts, _ := anomaly.ParseTimestamp(*rec.LastTelemetry); !ts.IsZero() {
				sat.LastTelemetry = &ts
			}
		}
		sats = append(sats, sat)
	}
	return sats
}

func normalizeStats(s *client.Stats) anomaly.Stats {
	return anomaly.Stats{
		TotalAnomaliesToday: s.TotalAnomaliesToday,
		CriticalAnomalies:   s.CriticalAnomalies,
		AverageScore:        s.AverageScore,
		OnlineSatellites:    s.OnlineSatellites,
	}
}
