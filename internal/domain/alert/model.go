package alert

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
)

// DefaultSummary is used when an event carries no issues
const DefaultSummary = "Anomaly detected"

// Alert is a presentation-ready summary of a non-normal anomaly event
type Alert struct {
	ID          string  `json:"id"`
	SatelliteID string  `json:"satellite_id"`
	Issue       string  `json:"issue"`
	Severity    string  `json:"severity"`
	Score       float64 `json:"score"`
	Timestamp   string  `json:"timestamp"`
}
