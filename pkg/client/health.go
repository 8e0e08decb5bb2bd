package client

import "context"

// Health probes the backend health endpoint. The response body is ignored;
// any 2xx status means the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, c.healthTimeout, "/health", nil)
}

// Ping is a simple connectivity test
func (c *Client) Ping(ctx context.Context) error {
	return c.Health(ctx)
}
