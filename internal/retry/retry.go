// Package retry retries remote calls that fail transiently.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/metrics"
)

// Policy bounds how a remote call is retried.
type Policy struct {
	MaxAttempts     int           // Total attempts including the first
	InitialInterval time.Duration // Wait before the second attempt
	MaxInterval     time.Duration // Cap on the exponential wait
	AttemptTimeout  time.Duration // Deadline for a single attempt, 0 = none
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		AttemptTimeout:  20 * time.Second,
	}
}

// Do runs op until it succeeds, fails permanently, or runs out of attempts.
// Only errors classified as transient are retried. The returned error is
// the last one op returned.
func Do[T any](ctx context.Context, p Policy, operation string, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	attempt := func() (T, error) {
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}

		v, err := op(attemptCtx)
		if err == nil {
			return v, nil
		}
		if isRetryable(ctx, attemptCtx, err) {
			return v, err
		}
		return v, backoff.Permanent(err)
	}

	v, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.RetryAttemptsTotal.WithLabelValues(operation).Inc()
			logger.Warn("transient failure, retrying", "operation", operation, "wait", wait, "error", err)
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return v, err
}

// isRetryable: classified transient, or the attempt hit its own deadline
// while the caller's context is still alive.
func isRetryable(parent, attempt context.Context, err error) bool {
	if domain.IsTransient(err) {
		return true
	}
	return parent.Err() == nil && errors.Is(attempt.Err(), context.DeadlineExceeded)
}
