package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/threatscore/types"
)

const (
	DefaultKeyPrefix = "threatscore"
	DefaultTTL       = time.Hour

	defaultTimeout = 5 * time.Second
)

// ProfileCache stores computed profiles keyed by actor.
type ProfileCache interface {
	// Get decodes the cached profile of an actor into dst. It reports false
	// when nothing is cached.
	Get(ctx context.Context, actor string, dst any) (bool, error)

	// Put caches a profile for the configured TTL.
	Put(ctx context.Context, actor string, profile any) error

	// Publish announces a computed profile.
	Publish(ctx context.Context, event ProfileEvent) error
}

// ProfileEvent announces that a profile was computed.
type ProfileEvent struct {
	RunID      string        `json:"run_id"`
	Actor      string        `json:"actor"`
	Total      types.Measure `json:"total"`
	Missing    []string      `json:"missing,omitempty"`
	ComputedAt time.Time     `json:"computed_at"`
}

// RedisOptions locate the Redis server backing the cache. Zero values take
// the defaults: a local server, DefaultKeyPrefix, DefaultTTL and 5s timeouts.
type RedisOptions struct {
	URL       string // redis:// or rediss:// connection string
	TLS       *tls.Config
	KeyPrefix string // namespaces every key and the events channel
	TTL       time.Duration

	// ConnectTimeout bounds dialing and the initial PING; IOTimeout bounds
	// each command.
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.URL == "" {
		o.URL = "redis://localhost:6379"
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultKeyPrefix
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultTimeout
	}
	if o.IOTimeout <= 0 {
		o.IOTimeout = defaultTimeout
	}
	return o
}

// RedisCache is the ProfileCache backed by Redis. Profiles are stored as JSON
// strings under <prefix>:profile:<actor key> and events go out on
// <prefix>:profiles.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects and pings the server before returning.
func NewRedisCache(opts RedisOptions) (*RedisCache, error) {
	opts = opts.withDefaults()

	clientOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if opts.TLS != nil {
		clientOpts.TLSConfig = opts.TLS
	}
	clientOpts.DialTimeout = opts.ConnectTimeout
	clientOpts.ReadTimeout, clientOpts.WriteTimeout = opts.IOTimeout, opts.IOTimeout

	cache := &RedisCache{client: redis.NewClient(clientOpts), prefix: opts.KeyPrefix, ttl: opts.TTL}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := cache.client.Ping(ctx).Err(); err != nil {
		_ = cache.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", clientOpts.Addr, err)
	}
	return cache, nil
}

// Get decodes the cached profile of an actor into dst.
func (c *RedisCache) Get(ctx context.Context, actor string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, c.profileKey(actor)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get profile %s: %w", actor, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal profile %s: %w", actor, err)
	}
	return true, nil
}

// Put caches a profile as JSON for the configured TTL.
func (c *RedisCache) Put(ctx context.Context, actor string, profile any) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile %s: %w", actor, err)
	}

	if err := c.client.Set(ctx, c.profileKey(actor), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache profile %s: %w", actor, err)
	}
	return nil
}

// Invalidate removes the cached profile of an actor.
func (c *RedisCache) Invalidate(ctx context.Context, actor string) error {
	if err := c.client.Del(ctx, c.profileKey(actor)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate profile %s: %w", actor, err)
	}
	return nil
}

// Publish sends a profile event to the events channel.
func (c *RedisCache) Publish(ctx context.Context, event ProfileEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := c.EventsChannel()
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe follows profile events until ctx is cancelled. The returned
// channel is closed when the subscription ends. Payloads that do not decode
// are skipped.
func (c *RedisCache) Subscribe(ctx context.Context) (<-chan ProfileEvent, error) {
	channel := c.EventsChannel()
	sub := c.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	events := make(chan ProfileEvent)
	go c.forward(ctx, sub, events)
	return events, nil
}

func (c *RedisCache) forward(ctx context.Context, sub *redis.PubSub, out chan<- ProfileEvent) {
	defer close(out)
	defer sub.Close()

	messages := sub.Channel()
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			msg = m
		}

		var event ProfileEvent
		if json.Unmarshal([]byte(msg.Payload), &event) != nil {
			continue
		}
		select {
		case out <- event:
		case <-ctx.Done():
			return
		}
	}
}

// EventsChannel returns the pub/sub channel profile events are published on.
func (c *RedisCache) EventsChannel() string {
	return key(c.prefix, "profiles")
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) profileKey(actor string) string {
	return key(c.prefix, "profile", types.ActorKey(actor))
}

func key(parts ...string) string { return strings.Join(parts, ":") }
