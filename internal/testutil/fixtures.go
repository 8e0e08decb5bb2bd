package testutil

// SatellitesJSON is a /satellites payload wrapped in a data envelope
const SatellitesJSON = `{"data":[
	{"satellite_id":"SAT-001","is_online":true,"latest_severity":"critical","last_telemetry":"2024-05-01T10:15:00"},
	{"satellite_id":"SAT-002","is_online":true,"latest_severity":"normal","last_telemetry":"2024-05-01T10:14:30+00:00"},
	{"satellite_id":"SAT-003","is_online":false,"latest_severity":"warning","last_telemetry":null}
]}`

// AnomaliesJSON is a bare /anomalies payload mixing both issue encodings,
// newest first. The last record carries no identity and must be dropped.
const AnomaliesJSON = `[
	{"id":3,"satellite_id":"SAT-001","timestamp":"2024-05-01T10:15:00","severity":"critical","score":0.91,"issue":"Temperature spike, Voltage drop, "},
	{"id":2,"satellite_id":"SAT-003","timestamp":"2024-05-01T10:10:00","severity":"warning","score":0.55,"issues":["Attitude drift"]},
	{"id":1,"satellite_id":"SAT-002","timestamp":"2024-04-30T23:50:00","severity":"normal","issue":""},
	{"severity":"critical","score":1}
]`

// StatsJSON is a /anomalies/stats payload
const StatsJSON = `{"total_anomalies_today":12,"critical_anomalies":3,"average_score":0.42,"online_satellites":2}`
