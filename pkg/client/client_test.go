package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: time.Second, HealthTimeout: time.Second})
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
	}
	if c.healthTimeout != DefaultHealthTimeout {
		t.Errorf("healthTimeout = %v, want %v", c.healthTimeout, DefaultHealthTimeout)
	}

	c = NewClient(Config{BaseURL: "http://example.test/"})
	if c.BaseURL() != "http://example.test" {
		t.Errorf("trailing slash not trimmed: %q", c.BaseURL())
	}
}

func TestSatellitesList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"satellite_id":"SAT-1","is_online":true,"latest_severity":"normal","last_telemetry":null}]`, want: 1},
		{name: "data envelope", body: `{"data":[{"satellite_id":"SAT-1"},{"satellite_id":"SAT-2"}]}`, want: 2},
		{name: "null", body: `null`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/satellites" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.Header.Get("X-Request-ID") == "" {
					t.Error("missing X-Request-ID header")
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			})

			sats, err := c.Satellites().List(context.Background())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if sats == nil {
				t.Fatal("List() returned nil slice")
			}
			if len(sats) != tt.want {
				t.Errorf("len = %d, want %d", len(sats), tt.want)
			}
		})
	}
}

func TestAnomaliesListQuery(t *testing.T) {
	var gotLimit string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_, _ = io.WriteString(w, `[{"satellite_id":"SAT-1","timestamp":"2024-05-01T10:00:00","severity":"critical","issue":"Temp high, Voltage low"}]`)
	})

	recs, err := c.Anomalies().List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotLimit != "50" {
		t.Errorf("limit = %q, want 50", gotLimit)
	}
	if len(recs) != 1 || recs[0].Score != nil {
		t.Errorf("unexpected records: %+v", recs)
	}
	if string(recs[0].Issue) != `"Temp high, Voltage low"` {
		t.Errorf("Issue = %s", recs[0].Issue)
	}
}

func TestAnomaliesStats(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anomalies/stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"total_anomalies_today":12,"critical_anomalies":3,"average_score":0.42,"online_satellites":4}`)
	})

	stats, err := c.Anomalies().Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalAnomaliesToday != 12 || stats.CriticalAnomalies != 3 || stats.OnlineSatellites != 4 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestFetchErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   Kind
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
			},
			wantKind:   KindHTTP,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantKind:   KindHTTP,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `[{"satellite_id":`)
			},
			wantKind: KindDecode,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantKind: KindDecode,
		},
		{
			name: "slow backend",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			wantKind: KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, Timeout: 100 * time.Millisecond})
			_, err := c.Satellites().List(context.Background())

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T (%v)", err, err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q (%v)", fe.Kind, tt.wantKind, err)
			}
			if fe.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", fe.StatusCode, tt.wantStatus)
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("KindOf() = %q", KindOf(err))
			}
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	c := NewClient(Config{
		BaseURL: "http://backend.invalid",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})},
	})

	err := c.Health(context.Background())
	if KindOf(err) != KindNetwork {
		t.Fatalf("KindOf() = %q, want network (%v)", KindOf(err), err)
	}
}

func TestFetchCancelledIsNetwork(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Health(ctx)
	if KindOf(err) != KindNetwork {
		t.Fatalf("KindOf() = %q, want network (%v)", KindOf(err), err)
	}
}

func TestHealthIgnoresBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, "not json")
	})

	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Kind: KindHTTP, Path: "/satellites", StatusCode: 503, StatusText: "Service Unavailable"}
	if !strings.Contains(err.Error(), "503 Service Unavailable") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !err.IsServerError() || err.IsNotFound() || err.IsTimeout() {
		t.Error("predicates disagree with kind/status")
	}
}
