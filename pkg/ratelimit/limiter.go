// Package ratelimit provides request limiters for the OData client.
//
// Every limiter only delays callers; none rejects a request outright. Wait
// returns an error only when the context ends or, for RedisLimiter, when the
// shared counter cannot be reached.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter blocks until one request may be sent.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Config holds token bucket configuration
type Config struct {
	// Rate is the sustained number of requests per second
	Rate float64
	// Burst is the number of requests that may be sent back to back
	Burst int
}

// DefaultConfig returns a conservative limit for public OData services
func DefaultConfig() Config {
	return Config{
		Rate:  5,
		Burst: 5,
	}
}

// NewTokenBucket creates an in-process token bucket limiter.
func NewTokenBucket(cfg Config) (*rate.Limiter, error) {
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("rate must be > 0 (got %v)", cfg.Rate)
	}
	if cfg.Burst < 1 {
		return nil, fmt.Errorf("burst must be >= 1 (got %d)", cfg.Burst)
	}
	return rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst), nil
}

// PerSecond returns a limiter admitting n requests per second with a burst
// of n. n <= 0 yields a limiter that never waits.
func PerSecond(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(n), n)
}
