package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "relay:dedup:"

// setNXer is the slice of the go-redis client the deduplicator needs.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis shares the seen-set across relay instances with SETNX and a TTL.
// When Redis is unreachable it falls back to a local Memory set.
type Redis struct {
	client   setNXer
	ttl      time.Duration
	fallback *Memory
	logger   *zap.Logger
}

// NewRedis builds a Redis-backed deduplicator.
func NewRedis(client setNXer, ttl time.Duration, capacity int, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{
		client:   client,
		ttl:      ttl,
		fallback: NewMemory(capacity),
		logger:   logger.With(zap.String("component", "dedup")),
	}
}

func (r *Redis) Seen(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	stored, err := r.client.SetNX(ctx, redisKeyPrefix+id, 1, r.ttl).Result()
	if err != nil {
		r.logger.Warn("redis dedup unavailable, using local set", zap.Error(err))
		return r.fallback.Seen(ctx, id)
	}
	return !stored
}
