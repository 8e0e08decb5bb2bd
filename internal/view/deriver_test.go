package view

import (
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/domain/alert"
	"github.com/pratik-mahalle/satwatch/internal/domain/anomaly"
	"github.com/pratik-mahalle/satwatch/internal/domain/satellite"
	"github.com/pratik-mahalle/satwatch/internal/state"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func event(sat, ts string, sev anomaly.Severity, score float64, issues ...string) anomaly.Event {
	t, date := anomaly.ParseTimestamp(ts)
	if issues == nil {
		issues = []string{}
	}
	return anomaly.Event{SatelliteID: sat, Timestamp: ts, Time: t, Date: date, Severity: sev, Score: score, Issues: issues}
}

func sampleEvents() []anomaly.Event {
	return []anomaly.Event{
		event("SAT-1", "2024-05-01T10:15:00", anomaly.SeverityCritical, 0.9, "Temp spike", "Voltage drop", "Gyro noise"),
		event("SAT-2", "2024-05-01T09:00:00", anomaly.SeverityNormal, 0.1),
		event("SAT-2", "2024-04-30T23:59:59", anomaly.SeverityWarning, 0.5),
		event("SAT-1", "2024-04-29T08:00:00", anomaly.Severity("degraded"), 0.3, "Link loss"),
	}
}

func TestFilter(t *testing.T) {
	events := sampleEvents()

	tests := []struct {
		name   string
		filter FilterState
		want   int
	}{
		{name: "no filter", filter: FilterState{}, want: 4},
		{name: "all sentinel", filter: FilterState{SatelliteID: "all"}, want: 4},
		{name: "by satellite", filter: FilterState{SatelliteID: "SAT-2"}, want: 2},
		{name: "unknown satellite", filter: FilterState{SatelliteID: "SAT-9"}, want: 0},
		{name: "from inclusive", filter: FilterState{From: "2024-04-30"}, want: 3},
		{name: "to inclusive", filter: FilterState{To: "2024-04-30"}, want: 2},
		{name: "single day", filter: FilterState{From: "2024-04-30", To: "2024-04-30"}, want: 1},
		{name: "inverted range", filter: FilterState{From: "2024-05-01", To: "2024-04-29"}, want: 0},
		{name: "satellite and range", filter: FilterState{SatelliteID: "SAT-1", From: "2024-05-01"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(events, tt.filter)
			if len(got) != tt.want {
				t.Errorf("len(Filter()) = %d, want %d", len(got), tt.want)
			}
			for _, ev := range got {
				if !tt.filter.Matches(ev) {
					t.Errorf("Filter() returned non-matching event %+v", ev)
				}
			}
		})
	}
}

func TestFilterUndatedEvents(t *testing.T) {
	events := []anomaly.Event{event("SAT-1", "garbage", anomaly.SeverityCritical, 1)}

	if got := Filter(events, FilterState{}); len(got) != 1 {
		t.Error("undated event should pass when no date bounds are set")
	}
	if got := Filter(events, FilterState{From: "2024-01-01"}); len(got) != 0 {
		t.Error("undated event should not pass a date bound")
	}
}

func TestFilterStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  FilterState
		wantErr bool
	}{
		{name: "empty", filter: FilterState{}},
		{name: "full", filter: FilterState{SatelliteID: "SAT-1", From: "2024-04-01", To: "2024-04-30"}},
		{name: "bad from", filter: FilterState{From: "yesterday"}, wantErr: true},
		{name: "bad to", filter: FilterState{To: "2024/04/30"}, wantErr: true},
		{name: "inverted", filter: FilterState{From: "2024-05-01", To: "2024-04-01"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.filter.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() = %+v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestDeriveAlerts(t *testing.T) {
	alerts := DeriveAlerts(sampleEvents())

	if len(alerts) != 3 {
		t.Fatalf("len(alerts) = %d, want 3", len(alerts))
	}

	want := []alert.Alert{
		{ID: "SAT-1@2024-05-01T10:15:00", SatelliteID: "SAT-1", Issue: "Temp spike, Voltage drop", Severity: alert.SeverityCritical, Score: 0.9, Timestamp: "10:15:00"},
		{ID: "SAT-2@2024-04-30T23:59:59", SatelliteID: "SAT-2", Issue: alert.DefaultSummary, Severity: alert.SeverityHigh, Score: 0.5, Timestamp: "23:59:59"},
		{ID: "SAT-1@2024-04-29T08:00:00", SatelliteID: "SAT-1", Issue: "Link loss", Severity: alert.SeverityHigh, Score: 0.3, Timestamp: "08:00:00"},
	}
	if !reflect.DeepEqual(alerts, want) {
		t.Errorf("DeriveAlerts() =\n%+v\nwant\n%+v", alerts, want)
	}
}

func TestDeriveAlertsCapAndOrder(t *testing.T) {
	var events []anomaly.Event
	for i := 0; i < 12; i++ {
		sev := anomaly.SeverityWarning
		if i%3 == 0 {
			sev = anomaly.SeverityNormal
		}
		events = append(events, event("SAT-1", fmt.Sprintf("2024-05-01T10:%02d:00", 59-i), sev, 0.5))
	}

	alerts := DeriveAlerts(events)
	if len(alerts) != MaxAlerts {
		t.Fatalf("len(alerts) = %d, want %d", len(alerts), MaxAlerts)
	}

	wantTimes := []string{"10:58:00", "10:57:00", "10:55:00", "10:54:00", "10:52:00"}
	for i, a := range alerts {
		if a.Timestamp != wantTimes[i] {
			t.Errorf("alert %d timestamp = %s, want %s", i, a.Timestamp, wantTimes[i])
		}
	}

	if got := DeriveAlerts(nil); got == nil || len(got) != 0 {
		t.Errorf("DeriveAlerts(nil) = %v, want empty slice", got)
	}
}

func TestComputeKPIs(t *testing.T) {
	sats := []satellite.Satellite{{ID: "SAT-1", Online: true}, {ID: "SAT-2", Online: false}, {ID: "SAT-3", Online: true}}

	tests := []struct {
		name   string
		events []anomaly.Event
		want   KPIs
	}{
		{
			name:   "empty set",
			events: nil,
			want:   KPIs{OnlineSatellites: 2},
		},
		{
			name:   "sample",
			events: sampleEvents(),
			want:   KPIs{TotalToday: 2, Critical: 1, AvgScore: (0.9 + 0.1 + 0.5 + 0.3) / 4, OnlineSatellites: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeKPIs(tt.events, sats, now)
			if math.Abs(got.AvgScore-tt.want.AvgScore) > 1e-9 {
				t.Errorf("AvgScore = %v, want %v", got.AvgScore, tt.want.AvgScore)
			}
			got.AvgScore, tt.want.AvgScore = 0, 0
			if got != tt.want {
				t.Errorf("ComputeKPIs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScoreSeriesAndHistory(t *testing.T) {
	events := sampleEvents()

	series := ScoreSeries(events)
	if len(series) != len(events) {
		t.Fatalf("len(series) = %d", len(series))
	}
	if series[0].Label != "08:00" || series[len(series)-1].Label != "10:15" {
		t.Errorf("series should run oldest to newest: %+v", series)
	}

	var many []anomaly.Event
	for i := 0; i < 20; i++ {
		many = append(many, event("SAT-1", fmt.Sprintf("2024-05-01T11:%02d:00", 59-i), anomaly.SeverityNormal, 0))
	}
	rows := HistoryRows(many)
	if len(rows) != MaxHistoryRows {
		t.Fatalf("len(rows) = %d, want %d", len(rows), MaxHistoryRows)
	}
	if rows[0].Time != "11:59:00" || rows[0].Key != "SAT-1@2024-05-01T11:59:00" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
}

func TestDerive(t *testing.T) {
	snap := state.Snapshot{
		Satellites: []satellite.Satellite{{ID: "SAT-1", Online: true}},
		Anomalies:  sampleEvents(),
		Stats:      &anomaly.Stats{TotalAnomaliesToday: 99},
		Connected:  false,
		Version:    7,
	}

	d := Derive(snap, FilterState{SatelliteID: "SAT-1"}, now)

	if d.Filter.SatelliteID != "SAT-1" || d.Connected || d.Version != 7 {
		t.Errorf("unexpected dashboard header: %+v", d)
	}
	if len(d.Anomalies) != 2 || len(d.Alerts) != 2 || len(d.History) != 2 || len(d.Series) != 2 {
		t.Errorf("filtered views disagree: anomalies=%d alerts=%d history=%d series=%d",
			len(d.Anomalies), len(d.Alerts), len(d.History), len(d.Series))
	}
	if d.ServerStats.TotalAnomaliesToday != 99 || d.KPIs.TotalToday != 1 {
		t.Error("server stats and local KPIs should be reported independently")
	}

	again := Derive(snap, FilterState{SatelliteID: "SAT-1"}, now)
	if !reflect.DeepEqual(d, again) {
		t.Error("Derive() is not deterministic")
	}

	if all := Derive(snap, FilterState{}, now); all.Filter.SatelliteID != AllSatellites {
		t.Errorf("empty selection should normalise to %q", AllSatellites)
	}
}
