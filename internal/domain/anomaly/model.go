package anomaly

import (
	"strings"
	"time"
)

// Severity is the canonical anomaly severity
type Severity string

// Severity levels
const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// NormalizeSeverity maps the backend vocabularies onto normal|warning|critical.
// Unknown non-empty values are kept (lower-cased) and treated as non-normal.
func NormalizeSeverity(raw string) Severity {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "normal", "low", "ok":
		return SeverityNormal
	case "warning", "warn", "medium", "high":
		return SeverityWarning
	case "critical":
		return SeverityCritical
	default:
		return Severity(s)
	}
}

// IsNormal reports whether the severity represents no anomaly
func (s Severity) IsNormal() bool {
	return s == SeverityNormal
}

// Event represents one anomaly observation
type Event struct {
	ID          string    `json:"id,omitempty"`
	SatelliteID string    `json:"satellite_id"`
	Timestamp   string    `json:"timestamp"`
	Time        time.Time `json:"-"`
	Date        string    `json:"date"`
	Severity    Severity  `json:"severity"`
	Score       float64   `json:"score"`
	Issues      []string  `json:"issues"`
}

// Key returns an identifier for the event that is stable across refreshes
func (e Event) Key() string {
	return e.SatelliteID + "@" + e.Timestamp
}

// Stats holds the server-side aggregate statistics
type Stats struct {
	TotalAnomaliesToday int     `json:"total_anomalies_today"`
	CriticalAnomalies   int     `json:"critical_anomalies"`
	AverageScore        float64 `json:"average_score"`
	OnlineSatellites    int     `json:"online_satellites"`
}

// SplitIssues splits a comma-joined issue string, trimming whitespace and
// dropping empty segments. "A, B, " yields ["A", "B"].
func SplitIssues(raw string) []string {
	parts := strings.Split(raw, ",")
	issues := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			issues = append(issues, p)
		}
	}
	return issues
}

// CleanIssues trims every issue and drops empty entries
func CleanIssues(raw []string) []string {
	issues := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			issues = append(issues, p)
		}
	}
	return issues
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are taken as UTC.
// When the value cannot be parsed, the returned time is zero and the date falls back
// to the leading YYYY-MM-DD of the raw string, or "" if there is none.
func ParseTimestamp(raw string) (time.Time, string) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return t, t.Format(time.DateOnly)
		}
	}

	if len(raw) >= 10 {
		if _, err := time.Parse(time.DateOnly, raw[:10]); err == nil {
			return time.Time{}, raw[:10]
		}
	}
	return time.Time{}, ""
}
