package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")
var errStructural = errors.New("structural")

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: time.Millisecond}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	assert := assert_.New(t)
	calls := 0
	var retried []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
		assert.ErrorIs(err, errTransient)
		assert.Equal(time.Millisecond, delay)
	}

	v, attempts, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	assert.NoError(err)
	assert.Equal("ok", v)
	assert.Equal(3, attempts)
	assert.Equal([]int{1, 2}, retried)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	assert := assert_.New(t)
	attempts, err := Do_(context.Background(), fastPolicy(), func(ctx context.Context) error {
		return errTransient
	})
	assert.ErrorIs(err, errTransient)
	assert.Equal(3, attempts)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	assert := assert_.New(t)
	p := fastPolicy()
	p.Retryable = func(err error) bool { return !errors.Is(err, errStructural) }
	attempts, err := Do_(context.Background(), p, func(ctx context.Context) error {
		return errStructural
	})
	assert.ErrorIs(err, errStructural)
	assert.Equal(1, attempts)
}

func TestDoSingleAttempt(t *testing.T) {
	attempts, err := Do_(context.Background(), Policy{MaxAttempts: 0}, func(ctx context.Context) error {
		return errTransient
	})
	assert_.Error(t, err)
	assert_.Equal(t, 1, attempts)
}

func TestDoCancelledContextIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts, err := Do_(ctx, Policy{MaxAttempts: 5, Delay: time.Hour}, func(ctx context.Context) error {
		return ctx.Err()
	})
	assert_.ErrorIs(t, err, context.Canceled)
	assert_.Equal(t, 1, attempts)
}

func TestAlwaysRetryable(t *testing.T) {
	assert_.True(t, AlwaysRetryable(errTransient))
	assert_.False(t, AlwaysRetryable(context.DeadlineExceeded))
}

func TestDoAttemptsDoNotDependOnElapsedTime(t *testing.T) {
	assert := assert_.New(t)
	slow := func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return errTransient
	}

	attempts, err := Do_(context.Background(), fastPolicy(), slow)
	assert.ErrorIs(err, errTransient)
	assert.Equal(3, attempts)

	// An explicit time budget shorter than one attempt cuts retries short
	p := fastPolicy()
	p.MaxElapsedTime = 2 * time.Millisecond
	attempts, err = Do_(context.Background(), p, slow)
	assert.ErrorIs(err, errTransient)
	assert.Equal(1, attempts)
}
