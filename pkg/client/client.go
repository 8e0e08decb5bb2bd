package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is used when no base URL is configured
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds every data fetch
	DefaultTimeout = 5 * time.Second

	// DefaultHealthTimeout bounds the health probe
	DefaultHealthTimeout = 3 * time.Second
)

// Client is the telemetry backend API client
type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
}

// Config holds the client configuration
type Config struct {
	BaseURL       string        // API base URL (default: http://127.0.0.1:8000)
	Timeout       time.Duration // Per-request timeout for data fetches (default: 5s)
	HealthTimeout time.Duration // Per-request timeout for the health probe (default: 3s)
	HTTPClient    *http.Client  // Optional custom HTTP client
}

// NewClient creates a new telemetry API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = DefaultHealthTimeout
	}

	// Deadlines come from the per-call context, not from http.Client.Timeout,
	// so that every failure is classified the same way.
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    httpClient,
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
	}
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch performs a bounded GET against path and decodes the JSON body into result.
// Any failure is returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, path string, result interface{}) error {
	return c.doRequest(ctx, c.timeout, path, result)
}

// doRequest performs a GET request bounded by timeout
func (c *Client) doRequest(ctx context.Context, timeout time.Duration, path string, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &FetchError{Kind: KindNetwork, Path: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(ctx, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; the body itself is not interpreted.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &FetchError{
			Kind:       KindHTTP,
			Path:       path,
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(ctx, path, err)
	}

	if result == nil {
		return nil
	}

	if err := decodeEnvelope(respBody, result); err != nil {
		return &FetchError{Kind: KindDecode, Path: path, Err: err}
	}

	return nil
}

// classify maps a transport error to a failure kind
func classify(ctx context.Context, path string, err error) *FetchError {
	kind := KindNetwork

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}

	return &FetchError{Kind: kind, Path: path, Err: err}
}

// decodeEnvelope accepts either a bare JSON value or an object of the form {"data": value}
func decodeEnvelope(body []byte, result interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return errors.New("empty response body")
	}

	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		if data, ok := envelope["data"]; ok {
			trimmed = data
		}
	}

	if err := json.Unmarshal(trimmed, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Satellites returns the satellite service
func (c *Client) Satellites() *SatelliteService {
	return &SatelliteService{client: c}
}

// Anomalies returns the anomaly service
func (c *Client) Anomalies() *AnomalyService {
	return &AnomalyService{client: c}
}
