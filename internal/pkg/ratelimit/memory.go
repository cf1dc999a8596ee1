package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter is a fixed window limiter for a single process. Counters expire with their window.
type MemoryLimiter struct {
	mu     sync.Mutex
	c      *gocache.Cache
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		prefix: "rl:",
		max:    int64(max),
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	winStart := now.Truncate(l.window)
	ttl := winStart.Add(l.window).Sub(now)
	k := windowKey(l.prefix, key, winStart)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// first hit in this window
		hits = 1
		l.c.Set(k, hits, ttl)
	}

	return newResult(hits, l.max, ttl, l.window), nil
}
