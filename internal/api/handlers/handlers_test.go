package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/api/dto"
	"github.com/pratik-mahalle/satwatch/internal/services"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/testutil"
	"github.com/pratik-mahalle/satwatch/internal/view"
	"github.com/pratik-mahalle/satwatch/internal/worker"
)

type fakeScheduler struct {
	err   error
	calls int
}

func (f *fakeScheduler) RefreshNow(ctx context.Context) error {
	f.calls++
	return f.err
}

func (f *fakeScheduler) Jobs() []worker.JobInfo {
	return []worker.JobInfo{{Name: "anomalies", Interval: 10 * time.Second}}
}

// loadedStore returns a store populated from the default fixtures
func loadedStore(t *testing.T) *state.Store {
	t.Helper()
	backend := testutil.NewBackend(t)
	store := state.New()
	syncer := services.NewSynchronizer(backend.Client(), store, testutil.NewLogger(), 50)
	if err := syncer.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	return store
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHealthHandler(t *testing.T) {
	store := state.New()
	h := NewHealthHandler(store, testutil.NewLogger())

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Healthz status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Readyz status = %d, want 200 while connected", rec.Code)
	}

	store.SetConnected(false)
	rec = httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Readyz status = %d, want 503 while disconnected", rec.Code)
	}
	if env := decode(t, rec); env.Error.Code != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("Readyz error code = %q", env.Error.Code)
	}
}

func TestDashboardHandler_Filters(t *testing.T) {
	h := NewDashboardHandler(loadedStore(t), &fakeScheduler{}, testutil.NewLogger())
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	tests := []struct {
		name          string
		query         string
		wantAnomalies int
		wantAlerts    int
		wantToday     int
	}{
		{name: "no filter", query: "", wantAnomalies: 3, wantAlerts: 2, wantToday: 2},
		{name: "all keyword", query: "?satellite_id=all", wantAnomalies: 3, wantAlerts: 2, wantToday: 2},
		{name: "one satellite", query: "?satellite_id=SAT-001", wantAnomalies: 1, wantAlerts: 1, wantToday: 1},
		{name: "date window", query: "?from=2024-04-30&to=2024-04-30", wantAnomalies: 1, wantAlerts: 0, wantToday: 0},
		{name: "no match", query: "?satellite_id=SAT-404", wantAnomalies: 0, wantAlerts: 0, wantToday: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}

			var d view.Dashboard
			if err := json.Unmarshal(decode(t, rec).Data, &d); err != nil {
				t.Fatalf("decode dashboard: %v", err)
			}
			if len(d.Anomalies) != tt.wantAnomalies {
				t.Errorf("anomalies = %d, want %d", len(d.Anomalies), tt.wantAnomalies)
			}
			if len(d.Alerts) != tt.wantAlerts {
				t.Errorf("alerts = %d, want %d", len(d.Alerts), tt.wantAlerts)
			}
			if d.KPIs.TotalToday != tt.wantToday {
				t.Errorf("total today = %d, want %d", d.KPIs.TotalToday, tt.wantToday)
			}
			if d.KPIs.OnlineSatellites != 2 {
				t.Errorf("online = %d, want 2 regardless of filter", d.KPIs.OnlineSatellites)
			}
			if d.ServerStats == nil || d.ServerStats.TotalAnomaliesToday != 12 {
				t.Errorf("server stats = %+v, want backend value kept", d.ServerStats)
			}
		})
	}
}

func TestDashboardHandler_InvalidFilter(t *testing.T) {
	h := NewDashboardHandler(state.New(), &fakeScheduler{}, testutil.NewLogger())

	for _, query := range []string{
		"?from=2024-13-01",
		"?to=yesterday",
		"?from=2024-05-02&to=2024-05-01",
	} {
		t.Run(query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Anomalies(rec, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies"+query, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env := decode(t, rec); env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error code = %q", env.Error.Code)
			}
		})
	}
}

func TestDashboardHandler_EmptyStore(t *testing.T) {
	h := NewDashboardHandler(state.New(), &fakeScheduler{}, testutil.NewLogger())

	rec := httptest.NewRecorder()
	h.KPIs(rec, httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Local  view.KPIs       `json:"local"`
		Server json.RawMessage `json:"server"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &body); err != nil {
		t.Fatal(err)
	}
	if body.Local != (view.KPIs{}) {
		t.Errorf("local KPIs = %+v, want zeros", body.Local)
	}
	if string(body.Server) != "null" {
		t.Errorf("server stats = %s, want null before first load", body.Server)
	}
}

func TestDashboardHandler_Status(t *testing.T) {
	store := loadedStore(t)
	seq := store.Begin(state.ResourceStats)
	store.Fail(state.ResourceStats, seq, "timeout", errors.New("deadline exceeded"))

	h := NewDashboardHandler(store, &fakeScheduler{}, testutil.NewLogger())
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	var status dto.StatusDTO
	if err := json.Unmarshal(decode(t, rec).Data, &status); err != nil {
		t.Fatal(err)
	}
	if !status.Connected {
		t.Error("connected = false")
	}
	if status.StaleCount != 1 {
		t.Errorf("stale count = %d, want 1", status.StaleCount)
	}
	if st := status.Resources[state.ResourceStats]; st.Error == nil || st.Error.Kind != "timeout" {
		t.Errorf("stats state = %+v", st)
	}
	if len(status.Jobs) != 1 {
		t.Errorf("jobs = %d, want 1", len(status.Jobs))
	}
}

func TestDashboardHandler_Refresh(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantErrors int
	}{
		{name: "ok", wantStatus: http.StatusOK},
		{name: "backend down", err: worker.ErrBackendUnavailable, wantStatus: http.StatusServiceUnavailable},
		{
			name:       "partial failure",
			err:        errors.Join(fmt.Errorf("refresh stats: boom"), fmt.Errorf("refresh anomalies: bang")),
			wantStatus: http.StatusOK,
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &fakeScheduler{err: tt.err}
			h := NewDashboardHandler(state.New(), sched, testutil.NewLogger())

			rec := httptest.NewRecorder()
			h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if sched.calls != 1 {
				t.Errorf("RefreshNow calls = %d, want 1", sched.calls)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp dto.RefreshResponse
			if err := json.Unmarshal(decode(t, rec).Data, &resp); err != nil {
				t.Fatal(err)
			}
			if len(resp.Errors) != tt.wantErrors {
				t.Errorf("errors = %v, want %d entries", resp.Errors, tt.wantErrors)
			}
		})
	}
}
