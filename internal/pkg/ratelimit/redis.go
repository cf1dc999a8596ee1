package ratelimit

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed window counters between every instance behind the same Redis.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration

	now func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

// Allow creates the window key with its expiry and counts the hit in one transaction, so a key can never be
// left behind without a TTL.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now
	if l.now != nil {
		now = l.now
	}

	winStart := now().UTC().Truncate(l.Window)
	redisKey := windowKey(l.Prefix, key, winStart)

	pipe := l.Client.TxPipeline()
	pipe.SetNX(ctx, redisKey, 0, l.Window)
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis: %w", err)
	}

	return newResult(incr.Val(), l.Max, ttl.Val(), l.Window), nil
}
