package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLinearBackOff_Progression(t *testing.T) {
	t.Parallel()
	bo := &linearBackOff{base: 10 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, bo.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, bo.NextBackOff())
	assert.Equal(t, 30*time.Millisecond, bo.NextBackOff())
	bo.Reset()
	assert.Equal(t, 10*time.Millisecond, bo.NextBackOff())
}

func TestAttemptWithFallback_FirstAttemptSucceeds(t *testing.T) {
	t.Parallel()
	calls := 0
	got := attemptWithFallback(context.Background(), discardLogger(), "op", 3, time.Millisecond,
		func() (string, error) { calls++; return "ok", nil },
		func() string { return "fallback" },
	)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestAttemptWithFallback_RecoversWithinBudget(t *testing.T) {
	t.Parallel()
	calls := 0
	got := attemptWithFallback(context.Background(), discardLogger(), "op", 3, time.Millisecond,
		func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		},
		func() int { return -1 },
	)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestAttemptWithFallback_ExhaustedUsesFallback(t *testing.T) {
	t.Parallel()
	calls := 0
	got := attemptWithFallback(context.Background(), discardLogger(), "op", 3, time.Millisecond,
		func() (string, error) { calls++; return "", errors.New("down") },
		func() string { return "fallback" },
	)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, 3, calls)
}

func TestAttemptWithFallback_ZeroAttemptsMeansOne(t *testing.T) {
	t.Parallel()
	calls := 0
	_ = attemptWithFallback(context.Background(), discardLogger(), "op", 0, time.Millisecond,
		func() (string, error) { calls++; return "", errors.New("down") },
		func() string { return "fallback" },
	)
	assert.Equal(t, 1, calls)
}
