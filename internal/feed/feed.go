// Package feed publishes engagement events to Redis pub/sub so dashboards
// can render the inbox live instead of polling the metrics endpoint.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/phishsim-monitor/internal/pkg/logger"
	"github.com/ignite/phishsim-monitor/internal/sim"
)

const defaultChannel = "phishsim:events"

// Publisher pushes accepted event-log appends onto a Redis channel. The
// feed is best-effort: a publish failure is logged and dropped, never
// allowed to stall a timeline callback. A nil Publisher is a valid no-op,
// so wiring code does not need to branch on whether Redis is configured.
type Publisher struct {
	client  *redis.Client
	channel string
}

// New connects a publisher to the Redis at the given URL. An empty URL
// disables the feed and returns nil. The URL is parsed as a redis:// URL
// first, falling back to a bare host:port address.
func New(url, channel string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	if channel == "" {
		channel = defaultChannel
	}
	return &Publisher{client: client, channel: channel}, nil
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Publish sends one event to the feed channel as JSON.
func (p *Publisher) Publish(e sim.Event) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		logger.Warn("feed marshal failed", "event_id", e.ID, "error", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		logger.Warn("feed publish failed", "event_id", e.ID, "error", err.Error())
	}
}

// Channel returns the pub/sub channel name.
func (p *Publisher) Channel() string {
	if p == nil {
		return ""
	}
	return p.channel
}

// Close releases the underlying connection.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
