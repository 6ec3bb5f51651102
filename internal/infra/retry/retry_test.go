package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts() Options {
	return Options{MaxRetries: 3, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOpts(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOpts(), func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	notFound := &HTTPError{StatusCode: 404}
	err := Do(context.Background(), fastOpts(), func() error {
		calls++
		return notFound
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 404, he.StatusCode)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOpts(), func() error {
		calls++
		return &HTTPError{StatusCode: 500}
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls, "one initial attempt plus three retries")
}

func TestDo_PlainErrorsAreNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOpts(), func() error {
		calls++
		return errors.New("marshal failed")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastOpts(), func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryable(&HTTPError{StatusCode: code}), code)
	}
	for _, code := range []int{400, 401, 403, 404, 422} {
		assert.False(t, IsRetryable(&HTTPError{StatusCode: code}), code)
	}
	assert.False(t, IsRetryable(errors.New("not http")))
	assert.False(t, IsRetryable(nil))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7"))
	assert.Zero(t, ParseRetryAfter(""))
	assert.Zero(t, ParseRetryAfter("garbage"))
	assert.Zero(t, ParseRetryAfter("-3"))

	future := time.Now().Add(30 * time.Second).UTC().Format(time.RFC1123)
	d := ParseRetryAfter(future)
	assert.Greater(t, d, 20*time.Second)

	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC1123)
	assert.Zero(t, ParseRetryAfter(past))
}

func TestFullJitterSleep(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := FullJitterSleep(attempt, 10*time.Millisecond, 100*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
	assert.Zero(t, FullJitterSleep(3, 0, time.Second))
}
