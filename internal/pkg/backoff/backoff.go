// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package backoff retries operations with exponential backoff and jitter.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy configures Retry.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first. Must be at least 1.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
}

// Retry calls f until it succeeds, fails with an error that isRetryable
// rejects, or the policy's attempts are exhausted. Between attempts, it waits
// a random duration between half the current delay and the delay, doubling
// the delay each time up to MaxDelay.
//
// On exhaustion the last result is returned with the last error wrapped, so
// callers can inspect partial results and the cause with errors.As.
func Retry[T any](
	ctx context.Context,
	policy Policy,
	isRetryable func(error) bool,
	f func(ctx context.Context, attempt int) (T, error),
) (T, error) {
	if policy.MaxAttempts < 1 {
		var zero T
		return zero, errors.New("backoff: MaxAttempts must be at least 1")
	}
	delay := policy.InitialDelay
	for attempt := 0; ; attempt++ {
		result, err := f(ctx, attempt)
		if err == nil || !isRetryable(err) {
			return result, err
		}
		if attempt == policy.MaxAttempts-1 {
			return result, fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, err)
		}
		select {
		case <-ctx.Done():
			return result, errors.Join(err, ctx.Err())
		case <-time.After(jitter(delay)):
		}
		delay = min(delay*2, policy.MaxDelay)
	}
}

// jitter returns a random duration in [delay/2, delay].
func jitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return delay/2 + time.Duration(rand.Int64N(int64(delay/2+1)))
}
