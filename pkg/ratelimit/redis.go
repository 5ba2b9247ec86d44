package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeyPrefix prefixes every window counter key.
const RedisKeyPrefix = "odata:ratelimit:"

// RedisLimiter shares a fixed one-second window quota between every process
// using the same Redis and name.
type RedisLimiter struct {
	redis  redis.Cmdable
	name   string
	limit  int64
	window time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisLimiter creates a limiter admitting perSecond requests per window
// across all processes sharing name.
func NewRedisLimiter(client redis.Cmdable, name string, perSecond int, logger zerolog.Logger) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if name == "" {
		return nil, errors.New("limiter name is required")
	}
	if perSecond < 1 {
		return nil, fmt.Errorf("perSecond must be >= 1 (got %d)", perSecond)
	}
	return &RedisLimiter{
		redis:  client,
		name:   name,
		limit:  int64(perSecond),
		window: time.Second,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Wait claims a slot in the current window, sleeping into following windows
// while the current one is full.
func (l *RedisLimiter) Wait(ctx context.Context) error {
	for {
		now := l.now()
		windowStart := now.Truncate(l.window)
		key := l.key(windowStart)

		// Counter and expiry are set together so an abandoned window never
		// outlives two window lengths.
		pipe := l.redis.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, 2*l.window)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("claim rate limit slot: %w", err)
		}

		count := incr.Val()
		if count <= l.limit {
			return nil
		}

		windowOverflowsTotal.Inc()
		wait := windowStart.Add(l.window).Sub(now)

		l.logger.Debug().
			Str("limiter", l.name).
			Int64("count", count).
			Int64("limit", l.limit).
			Dur("wait", wait).
			Msg("Rate limit window full, waiting for next window")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Usage returns the number of slots claimed in the current window.
func (l *RedisLimiter) Usage(ctx context.Context) (int64, error) {
	key := l.key(l.now().Truncate(l.window))
	n, err := l.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get window usage: %w", err)
	}
	return n, nil
}

func (l *RedisLimiter) key(windowStart time.Time) string {
	return RedisKeyPrefix + l.name + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}
