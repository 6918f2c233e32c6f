package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// DefaultRetryDelays is the backoff sequence used for classification calls.
var DefaultRetryDelays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy retries an operation once per entry in Delays, waiting that
// long before each additional attempt.
type RetryPolicy struct {
	Retryable func(error) bool
	Sleep     SleepFunc
	Logger    *slog.Logger
	Delays    []time.Duration
}

// NewRetryPolicy returns a policy using IsRetryable and a real clock.
func NewRetryPolicy(delays []time.Duration, logger *slog.Logger) RetryPolicy {
	if delays == nil {
		delays = DefaultRetryDelays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return RetryPolicy{
		Delays:    delays,
		Retryable: IsRetryable,
		Sleep:     SleepContext,
		Logger:    logger,
	}
}

// Attempts returns the maximum number of times Do will call the operation.
func (p RetryPolicy) Attempts() int {
	return len(p.Delays) + 1
}

// Do runs operation until it succeeds, fails with a non-retryable error, or
// the delay sequence is exhausted. An exhausted policy returns the last error
// wrapped together with ErrMaxRetries.
func (p RetryPolicy) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 0; attempt <= len(p.Delays); attempt++ {
		if attempt > 0 {
			delay := p.Delays[attempt-1]
			logger.Warn("Operation failed, retrying",
				"attempt", attempt,
				"max_attempts", p.Attempts(),
				"delay", delay,
				"error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("retry interrupted: %w", err)
			}
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	if len(p.Delays) == 0 {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, p.Attempts(), lastErr)
}

// SleepContext waits for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
