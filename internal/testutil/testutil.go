package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

// Response is a canned reply served by the fake backend
type Response struct {
	Status int
	Body   string
	Delay  time.Duration
}

// Backend is an in-process stand-in for the telemetry backend
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	hits      map[string]int
}

// NewBackend starts a fake backend serving the default fixtures
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		responses: map[string]Response{
			"/health":          {Status: http.StatusOK, Body: `{"status":"ok"}`},
			"/satellites":      {Status: http.StatusOK, Body: SatellitesJSON},
			"/anomalies":       {Status: http.StatusOK, Body: AnomaliesJSON},
			"/anomalies/stats": {Status: http.StatusOK, Body: StatsJSON},
		},
		hits: make(map[string]int),
	}

	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	resp, ok := b.responses[r.URL.Path]
	b.hits[r.URL.Path]++
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write([]byte(resp.Body))
}

// Set replaces the canned reply for path
func (b *Backend) Set(path string, resp Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	b.responses[path] = resp
}

// Hits returns how many requests path has received
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// Client returns a client pointed at the fake backend with short timeouts
func (b *Backend) Client() *client.Client {
	return client.NewClient(client.Config{
		BaseURL:       b.Server.URL,
		Timeout:       200 * time.Millisecond,
		HealthTimeout: 200 * time.Millisecond,
	})
}

// NewLogger returns a logger that only reports errors
func NewLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}
