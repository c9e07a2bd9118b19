// Package redis wraps the go-redis client with connect-time validation and
// the generic view cache used by the read paths.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andreecahyadi/digital-bank-system/shared/config"
)

type Client struct {
	*redis.Client
}

// NewClient connects and pings so a bad address fails at startup, not on the
// first cached read. Pool size and timeouts are tunable through the
// environment.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  config.GetEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  config.GetEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: config.GetEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		PoolSize:     config.GetEnvInt("REDIS_POOL_SIZE", 10),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("connected to redis", "addr", addr)

	return &Client{Client: rdb}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
