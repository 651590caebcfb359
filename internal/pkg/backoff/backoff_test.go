// Copyright 2026 Peter Edge
//
// All rights reserved.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func TestRetrySucceedsAfterRetryableErrors(t *testing.T) {
	t.Parallel()
	var attempts []int
	result, err := Retry(
		context.Background(),
		Policy{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		isBusy,
		func(_ context.Context, attempt int) (string, error) {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return "", errBusy
			}
			return "done", nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, "done", result)
	require.Equal(t, []int{0, 1, 2}, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	t.Parallel()
	errFatal := errors.New("fatal")
	calls := 0
	result, err := Retry(
		context.Background(),
		Policy{MaxAttempts: 5},
		isBusy,
		func(context.Context, int) (int, error) {
			calls++
			return 7, errFatal
		},
	)
	require.ErrorIs(t, err, errFatal)
	// The result of the failing attempt is returned.
	require.Equal(t, 7, result)
	require.Equal(t, 1, calls)
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()
	calls := 0
	result, err := Retry(
		context.Background(),
		Policy{MaxAttempts: 3},
		isBusy,
		func(_ context.Context, attempt int) (int, error) {
			calls++
			return attempt, errBusy
		},
	)
	require.ErrorIs(t, err, errBusy)
	require.ErrorContains(t, err, "failed after 3 attempts")
	require.Equal(t, 2, result)
	require.Equal(t, 3, calls)
}

func TestRetryContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(
		ctx,
		Policy{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour},
		isBusy,
		func(context.Context, int) (int, error) {
			return 0, errBusy
		},
	)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, errBusy)
}

func TestRetryInvalidPolicy(t *testing.T) {
	t.Parallel()
	_, err := Retry(context.Background(), Policy{}, isBusy, func(context.Context, int) (int, error) {
		return 0, nil
	})
	require.Error(t, err)
}

func isBusy(err error) bool {
	return errors.Is(err, errBusy)
}
