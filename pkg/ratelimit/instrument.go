package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// slowWait is the wait above which Instrument logs at Debug level.
const slowWait = 100 * time.Millisecond

type instrumented struct {
	next   Limiter
	name   string
	logger zerolog.Logger
}

// Instrument wraps next so that every Wait is recorded in
// odata_ratelimit_wait_seconds under the given name.
func Instrument(next Limiter, name string, logger zerolog.Logger) Limiter {
	return &instrumented{next: next, name: name, logger: logger}
}

func (i *instrumented) Wait(ctx context.Context) error {
	start := time.Now()
	err := i.next.Wait(ctx)
	waited := time.Since(start)

	waitDuration.WithLabelValues(i.name).Observe(waited.Seconds())

	if err != nil {
		i.logger.Debug().Err(err).Str("limiter", i.name).Dur("waited", waited).Msg("Rate limiter wait aborted")
		return err
	}
	if waited >= slowWait {
		i.logger.Debug().Str("limiter", i.name).Dur("waited", waited).Msg("Request delayed by rate limiter")
	}
	return nil
}
