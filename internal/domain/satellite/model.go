package satellite

import "time"

// Satellite represents a tracked spacecraft as last reported by the backend
type Satellite struct {
	ID             string     `json:"satellite_id"`
	Online         bool       `json:"is_online"`
	LatestSeverity string     `json:"latest_severity"`
	LastTelemetry  *time.Time `json:"last_telemetry"`
}

// CountOnline returns the number of satellites flagged online
func CountOnline(satellites []Satellite) int {
	n := 0
	for _, s := range satellites {
		if s.Online {
			n++
		}
	}
	return n
}
