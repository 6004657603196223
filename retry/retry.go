// Package retry is the one retry policy used for segment downloads, segment remuxes and direct downloads: a bounded
// number of attempts with a fixed delay, and a classifier deciding which failures are worth another attempt.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 5 * time.Second
)

type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// MaxElapsedTime stops retrying once this much time has passed since the first attempt. Zero means attempts are
	// limited by MaxAttempts alone, however long each one takes.
	MaxElapsedTime time.Duration
	// Retryable classifies failures; nil means AlwaysRetryable.
	Retryable func(error) bool
	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
	}
}

// AlwaysRetryable retries everything except cancellation of the caller's context.
func AlwaysRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do runs op until it succeeds, fails with a non-retryable error, or runs out of attempts. It returns the number of
// attempts made alongside op's last result.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = AlwaysRetryable
	}

	attempts := 0
	operation := func() (T, error) {
		attempts++
		res, err := op(ctx)
		if err != nil && !retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(p.MaxElapsedTime),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, d time.Duration) {
			p.OnRetry(attempts, err, d)
		}))
	}
	res, err := backoff.Retry(ctx, operation, opts...)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return res, attempts, err
}

// Do_ is like Do, for operations that only return an error.
func Do_(ctx context.Context, p Policy, op func(ctx context.Context) error) (int, error) {
	_, attempts, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return attempts, err
}
