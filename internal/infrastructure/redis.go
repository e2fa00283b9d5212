package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisPingTimeout = 3 * time.Second

// NewRedisClient parses a redis:// DSN and checks the server is reachable.
func NewRedisClient(ctx context.Context, cacheDSN string) (*redis.Client, error) {
	if strings.TrimSpace(cacheDSN) == "" {
		return nil, fmt.Errorf("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, defaultRedisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logrus.WithField("addr", options.Addr).Info("redis connection established")

	return client, nil
}
