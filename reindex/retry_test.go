package reindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	for _, maxAttempts := range []int{0, -1} {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return errors.New("should not run")
		}, maxAttempts, time.Millisecond)

		require.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Zero(t, calls, "operation must not run for maxAttempts %d", maxAttempts)
	}
}

func TestRetryWithBackoff_FirstTrySuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return nil
	}, 3, 10*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "should stop retrying once the operation succeeds")
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	persistent := errors.New("persistent")
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return persistent
	}, 3, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, persistent, err, "the final attempt's error comes back unwrapped")
	assert.Equal(t, 3, calls, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("failing")
	}, 10, 10*time.Millisecond)

	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2, "cancellation must cut the retry loop short")
}

func TestRetryWithBackoff_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		time.Sleep(30 * time.Millisecond)
		return errors.New("slow failure")
	}, 10, 10*time.Millisecond)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, calls, 3, "the deadline must cut the retry loop short")
}

func TestRetryWithBackoff_BackoffGrows(t *testing.T) {
	var stamps []time.Time
	err := RetryWithBackoff(context.Background(), func() error {
		stamps = append(stamps, time.Now())
		if len(stamps) < 4 {
			return errors.New("not yet")
		}
		return nil
	}, 5, 10*time.Millisecond)

	require.NoError(t, err)
	require.Len(t, stamps, 4)

	// Waits double each round, so each gap should exceed the one before it.
	gaps := make([]time.Duration, 0, 3)
	for i := 1; i < len(stamps); i++ {
		gaps = append(gaps, stamps[i].Sub(stamps[i-1]))
	}
	assert.Greater(t, gaps[1], gaps[0])
	assert.Greater(t, gaps[2], gaps[1])
}
