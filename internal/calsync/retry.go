package calsync

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Retry bounds the retries of remote reads. Writes are never retried.
type Retry struct {
	// Attempts is the total number of tries, including the first.
	Attempts    int
	InitialWait time.Duration
}

// DefaultRetry is used for zero-valued Retry fields.
var DefaultRetry = Retry{Attempts: 3, InitialWait: 200 * time.Millisecond}

func (r Retry) withDefaults() Retry {
	if r.Attempts <= 0 {
		r.Attempts = DefaultRetry.Attempts
	}
	if r.InitialWait < 0 {
		r.InitialWait = 0
	}
	return r
}

// permanent reports errors that another attempt cannot fix.
func permanent(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrCalendarNotFound)
}

// withRetry calls fn until it succeeds, fails permanently, or the attempts run
// out, doubling the wait after each failure.
func withRetry[T any](ctx context.Context, r Retry, log zerolog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	r = r.withDefaults()
	wait := r.InitialWait

	var zero T
	var err error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if permanent(err) || attempt == r.Attempts {
			break
		}

		log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("remote read failed, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}

	return zero, err
}
