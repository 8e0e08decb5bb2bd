// Package publisher fans the derived dashboard out over Redis pub/sub so that
// several consumers can share one synchronised backend view.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/view"
)

// LatestTTL bounds how long the last published dashboard stays readable
const LatestTTL = 10 * time.Minute

// Redis is the subset of the go-redis client the publisher uses
type Redis interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Publisher publishes the unfiltered dashboard on every store change
type Publisher struct {
	redis   Redis
	store   *state.Store
	channel string
	logger  *logger.Logger
	now     func() time.Time

	lastVersion uint64
}

// Connect parses a redis:// URL and verifies the server is reachable
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// New creates a publisher writing to channel
func New(rdb Redis, store *state.Store, channel string, log *logger.Logger) *Publisher {
	return &Publisher{
		redis:   rdb,
		store:   store,
		channel: channel,
		logger:  log,
		now:     time.Now,
	}
}

// LatestKey is where the most recent dashboard is stored for late subscribers
func (p *Publisher) LatestKey() string {
	return p.channel + ":latest"
}

// Run publishes until ctx is cancelled
func (p *Publisher) Run(ctx context.Context) {
	changes, cancel := p.store.Subscribe()
	defer cancel()

	p.logger.WithFields(map[string]interface{}{
		"channel": p.channel,
	}).Info("Dashboard publisher started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if err := p.Publish(ctx); err != nil {
				p.logger.WithError(err).Warn("Failed to publish dashboard")
			}
		}
	}
}

// Publish derives the current dashboard and publishes it if the store moved on
// since the last successful publish
func (p *Publisher) Publish(ctx context.Context) error {
	snap := p.store.Snapshot()
	if snap.Version != 0 && snap.Version == p.lastVersion {
		return nil
	}

	d := view.Derive(snap, view.FilterState{SatelliteID: view.AllSatellites}, p.now())
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}

	if err := p.redis.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := p.redis.Set(ctx, p.LatestKey(), payload, LatestTTL).Err(); err != nil {
		return fmt.Errorf("store latest: %w", err)
	}

	p.lastVersion = snap.Version
	p.logger.WithFields(map[string]interface{}{
		"version": snap.Version,
		"bytes":   len(payload),
	}).Debug("Dashboard published")
	return nil
}
