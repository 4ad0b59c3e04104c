// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannelPrefix namespaces mirrored events in Redis.
const DefaultChannelPrefix = "deck-engine:"

// RedisMirror forwards events over Redis pub/sub so views in other
// processes converge too.
type RedisMirror struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedisMirror connects to redisURL (redis://host:port/db).
func NewRedisMirror(ctx context.Context, redisURL, prefix string, log *zap.Logger) (*RedisMirror, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisMirrorWithClient(client, prefix, log), nil
}

// NewRedisMirrorWithClient wraps an existing client.
func NewRedisMirrorWithClient(client *redis.Client, prefix string, log *zap.Logger) *RedisMirror {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisMirror{client: client, prefix: prefix, log: log}
}

// Channel returns the Redis channel that carries all events.
func (m *RedisMirror) Channel() string { return m.prefix + "events" }

// Forward publishes env on the events channel.
func (m *RedisMirror) Forward(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := m.client.Publish(ctx, m.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", env.Event, err)
	}
	return nil
}

// Relay subscribes to the events channel and hands every envelope to
// receive until ctx is done. ready, if non-nil, is closed once the
// subscription is active.
func (m *RedisMirror) Relay(ctx context.Context, receive func(Envelope) bool, ready chan<- struct{}) error {
	sub := m.client.Subscribe(ctx, m.Channel())
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", m.Channel(), err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				m.log.Warn("dropping malformed mirrored event", zap.Error(err))
				continue
			}
			receive(env)
		}
	}
}

// Close closes the Redis client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
