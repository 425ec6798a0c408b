package alerting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
)

// RedisChannel pushes violations onto a capped Redis list and publishes
// them on a pub/sub topic, so sibling instances and external tooling can
// consume the live feed.
type RedisChannel struct {
	client *redis.Client
	cfg    config.RedisConfig
}

// NewRedisChannel creates a Redis channel from the connection config.
func NewRedisChannel(cfg config.RedisConfig) *RedisChannel {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &RedisChannel{client: client, cfg: cfg}
}

func (r *RedisChannel) Name() string {
	return "redis"
}

func (r *RedisChannel) Send(ctx context.Context, v check.Violation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal violation: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, r.cfg.ListKey, data)
	if r.cfg.ListMaxLen > 0 {
		pipe.LTrim(ctx, r.cfg.ListKey, 0, r.cfg.ListMaxLen-1)
	}
	if r.cfg.PubSubTopic != "" {
		pipe.Publish(ctx, r.cfg.PubSubTopic, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delivery failed: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisChannel) Close() error {
	return r.client.Close()
}

// Ping verifies connectivity at startup.
func (r *RedisChannel) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
