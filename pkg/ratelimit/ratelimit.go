// Package ratelimit counts attempts per key in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter interface {
	// Allow records one attempt for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	log    *zap.Logger
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		log:    log.With(zap.String("limiter", prefix)),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", k, err)
	}

	count := incr.Val()
	if count > int64(l.limit) {
		l.log.Warn("Rate limit exceeded", zap.String("key", k), zap.Int64("count", count))
		return false, nil
	}
	return true, nil
}

func (l *RedisLimiter) key(key string) string {
	return "ratelimit:" + l.prefix + ":" + key
}

// Nop allows everything. Used when Redis is not configured.
type Nop struct{}

func (Nop) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

// NewRedisClient connects and pings. An empty addr yields (nil, nil).
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}
