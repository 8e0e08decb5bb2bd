package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/testutil"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

func TestMonitor_Check(t *testing.T) {
	tests := []struct {
		name string
		resp testutil.Response
		want bool
	}{
		{name: "healthy", resp: testutil.Response{Status: http.StatusOK}, want: true},
		{name: "healthy with odd body", resp: testutil.Response{Status: http.StatusNoContent}, want: true},
		{name: "server error", resp: testutil.Response{Status: http.StatusInternalServerError}, want: false},
		{name: "slow", resp: testutil.Response{Status: http.StatusOK, Delay: time.Second}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewBackend(t)
			backend.Set("/health", tt.resp)

			store := state.New()
			m := NewMonitor(backend.Client(), store, testutil.NewLogger())

			if !m.Connected() {
				t.Fatal("monitor should start optimistic")
			}
			if got := m.Check(context.Background()); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			if m.Connected() != tt.want || store.Connected() != tt.want {
				t.Error("monitor and store disagree with the probe result")
			}
		})
	}
}

func TestMonitor_Unreachable(t *testing.T) {
	c := client.NewClient(client.Config{BaseURL: "http://127.0.0.1:1", HealthTimeout: 200 * time.Millisecond})
	m := NewMonitor(c, state.New(), testutil.NewLogger())

	if m.Check(context.Background()) {
		t.Error("Check() should report disconnected for a refused connection")
	}
}

func TestMonitor_Recovers(t *testing.T) {
	backend := testutil.NewBackend(t)
	m := NewMonitor(backend.Client(), state.New(), testutil.NewLogger())

	backend.Set("/health", testutil.Response{Status: http.StatusBadGateway})
	if m.Check(context.Background()) {
		t.Fatal("expected disconnected")
	}

	backend.Set("/health", testutil.Response{Status: http.StatusOK})
	if !m.Check(context.Background()) {
		t.Fatal("expected reconnect")
	}
}
