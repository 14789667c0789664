package usecase

import (
	"context"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// linearBackOff waits base, 2*base, 3*base... between attempts.
type linearBackOff struct {
	base time.Duration
	n    int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return time.Duration(l.n) * l.base
}

func (l *linearBackOff) Reset() { l.n = 0 }

// attemptWithFallback runs op up to attempts times with linearly increasing
// delay between attempts and hands over to fallback once they are exhausted.
// The fallback must not fail, so callers always receive a usable value.
// Both the question generator and the answer evaluator route their LLM calls
// through this combinator.
func attemptWithFallback[T any](ctx context.Context, log *slog.Logger, opName string, attempts int, baseDelay time.Duration, op func() (T, error), fallback func() T) T {
	if attempts < 1 {
		attempts = 1
	}
	var out T
	call := func() error {
		v, err := op()
		if err != nil {
			log.Warn("attempt failed", slog.String("op", opName), slog.Any("error", err))
			return err
		}
		out = v
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{base: baseDelay}, uint64(attempts-1)), ctx)
	if err := backoff.Retry(call, bo); err != nil {
		log.Warn("all attempts exhausted, using fallback",
			slog.String("op", opName),
			slog.Int("attempts", attempts),
			slog.Any("error", err))
		return fallback()
	}
	return out
}
