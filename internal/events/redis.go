package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel page events are relayed on.
const DefaultChannel = "wikitree:page-events"

type envelope struct {
	Origin string    `json:"origin"`
	Event  PageEvent `json:"event"`
}

// RedisRelay shares page events between server instances over Redis pub/sub.
// Events carry the publishing instance id so an instance ignores its own.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisRelay creates a relay for the instance identified by origin.
func NewRedisRelay(rdb *redis.Client, channel, origin string, logger *slog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{rdb: rdb, channel: channel, origin: origin, logger: logger}
}

// Handle publishes ev to Redis. It has the Handler signature so the relay
// can subscribe to a Bus.
func (r *RedisRelay) Handle(ctx context.Context, ev PageEvent) {
	if err := r.Publish(ctx, ev); err != nil {
		r.logger.Warn("failed to relay page event", "type", ev.Type, "path", pagePath(ev), "error", err)
	}
}

// Publish sends ev to the relay channel.
func (r *RedisRelay) Publish(ctx context.Context, ev PageEvent) error {
	payload, err := json.Marshal(envelope{Origin: r.origin, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal page event: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish page event: %w", err)
	}
	return nil
}

// Listen subscribes to the relay channel and calls handle for every event
// published by another instance. It returns once the subscription is
// confirmed; the returned stop function ends it.
func (r *RedisRelay) Listen(ctx context.Context, handle Handler) (stop func() error, err error) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	go func() {
		for msg := range sub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("malformed relayed event", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			handle(ctx, env.Event)
		}
	}()

	return sub.Close, nil
}
