// Package redis holds the optional Redis-backed pieces: the cross-process
// market lock and the settlement publisher.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"amm-market/internal/config"
)

// Client wraps a go-redis Client
type Client struct {
	rdb *redis.Client
}

// New connects and pings. It fails if Redis is unreachable.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw driver client
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
