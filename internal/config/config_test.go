package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SATWATCH_API_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.HealthTimeout != 3*time.Second || cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.Backend.HealthTimeout, cfg.Backend.Timeout)
	}
	if cfg.Polling.SatellitesInterval != 30*time.Second || cfg.Polling.AnomaliesInterval != 10*time.Second {
		t.Errorf("unexpected polling defaults: %+v", cfg.Polling)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SATWATCH_API_BASE_URL", "https://telemetry.example.com")
	t.Setenv("SATWATCH_ANOMALIES_INTERVAL", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Polling.AnomaliesInterval != 5*time.Second {
		t.Errorf("AnomaliesInterval = %v", cfg.Polling.AnomaliesInterval)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %q", cfg.Server.AllowedOrigins)
	}
	if !cfg.Redis.Enabled() {
		t.Error("redis should be enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "bad url", env: map[string]string{"SATWATCH_API_BASE_URL": "ftp://x"}, wantErr: true},
		{name: "bad port", env: map[string]string{"SERVER_PORT": "70000"}, wantErr: true},
		{name: "sub-second interval", env: map[string]string{"SATWATCH_HEALTH_INTERVAL": "100ms"}, wantErr: true},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}, wantErr: true},
		{name: "console logs", env: map[string]string{"LOG_FORMAT": "console"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
