package client

import "encoding/json"

// Satellite is the wire representation of a satellite
type Satellite struct {
	SatelliteID    string  `json:"satellite_id"`
	IsOnline       bool    `json:"is_online"`
	LatestSeverity string  `json:"latest_severity"`
	LastTelemetry  *string `json:"last_telemetry"` // ISO-8601 or null
}

// AnomalyRecord is the wire representation of an anomaly event.
// Fields are kept loose so that partially populated records still decode.
type AnomalyRecord struct {
	ID          json.RawMessage `json:"id,omitempty"`
	SatelliteID string          `json:"satellite_id"`
	Timestamp   string          `json:"timestamp"`
	Severity    string          `json:"severity"`
	Score       *float64        `json:"score,omitempty"`
	Issue       json.RawMessage `json:"issue,omitempty"`  // comma-joined string or array
	Issues      json.RawMessage `json:"issues,omitempty"` // array or comma-joined string
}

// Stats is the wire representation of the aggregate statistics
type Stats struct {
	TotalAnomaliesToday int     `json:"total_anomalies_today"`
	CriticalAnomalies   int     `json:"critical_anomalies"`
	AverageScore        float64 `json:"average_score"`
	OnlineSatellites    int     `json:"online_satellites"`
}
