package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all daemon configuration
type Config struct {
	Backend BackendConfig
	Polling PollingConfig
	Server  ServerConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

// BackendConfig describes the telemetry backend
type BackendConfig struct {
	BaseURL       string
	Timeout       time.Duration
	HealthTimeout time.Duration
	AnomalyLimit  int
}

// PollingConfig holds the refresh cadence per job
type PollingConfig struct {
	HealthInterval     time.Duration
	SatellitesInterval time.Duration
	AnomaliesInterval  time.Duration
	StatsInterval      time.Duration
}

// ServerConfig holds the local HTTP API configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RefreshRate     float64 // manual refreshes per second per client
	RefreshBurst    int
}

// RedisConfig holds the optional dashboard fan-out configuration
type RedisConfig struct {
	URL     string
	Channel string
}

// Enabled reports whether dashboard publishing is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// Load reads configuration from the environment, after loading a .env file if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Backend: BackendConfig{
			BaseURL:       getEnv("SATWATCH_API_BASE_URL", "http://127.0.0.1:8000"),
			Timeout:       getEnvAsDuration("SATWATCH_FETCH_TIMEOUT", 5*time.Second),
			HealthTimeout: getEnvAsDuration("SATWATCH_HEALTH_TIMEOUT", 3*time.Second),
			AnomalyLimit:  getEnvAsInt("SATWATCH_ANOMALY_LIMIT", 50),
		},
		Polling: PollingConfig{
			HealthInterval:     getEnvAsDuration("SATWATCH_HEALTH_INTERVAL", 10*time.Second),
			SatellitesInterval: getEnvAsDuration("SATWATCH_SATELLITES_INTERVAL", 30*time.Second),
			AnomaliesInterval:  getEnvAsDuration("SATWATCH_ANOMALIES_INTERVAL", 10*time.Second),
			StatsInterval:      getEnvAsDuration("SATWATCH_STATS_INTERVAL", 10*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "127.0.0.1"),
			Port:            getEnvAsInt("SERVER_PORT", 8090),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RefreshRate:     getEnvAsFloat("REFRESH_RATE_LIMIT", 0.2),
			RefreshBurst:    getEnvAsInt("REFRESH_RATE_BURST", 2),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			Channel: getEnv("REDIS_CHANNEL", "satwatch:dashboard"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SATWATCH_API_BASE_URL must be an http(s) URL, got %q", c.Backend.BaseURL)
	}

	if c.Backend.Timeout <= 0 || c.Backend.HealthTimeout <= 0 {
		return fmt.Errorf("fetch timeouts must be positive")
	}

	if c.Backend.AnomalyLimit < 1 {
		return fmt.Errorf("invalid anomaly limit: %d", c.Backend.AnomalyLimit)
	}

	for name, d := range map[string]time.Duration{
		"health":     c.Polling.HealthInterval,
		"satellites": c.Polling.SatellitesInterval,
		"anomalies":  c.Polling.AnomaliesInterval,
		"stats":      c.Polling.StatsInterval,
	} {
		if d < time.Second {
			return fmt.Errorf("%s interval must be at least 1s, got %s", name, d)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.RefreshRate <= 0 || c.Server.RefreshBurst < 1 {
		return fmt.Errorf("refresh rate limit must be positive")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}

	return nil
}

// Addr returns the listen address of the local API
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
