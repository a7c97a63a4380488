package runner

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry invokes op up to maxAttempts times. Attempt k (0-indexed) is followed
// by a randomized delay around baseDelay*2^k; jitter is applied so concurrent
// retries do not synchronize. There is no delay after the final attempt, and
// the last error is returned once attempts are exhausted. The context cancels
// both the operation and any pending backoff sleep.
func Retry[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	return backoff.RetryWithData(
		func() (T, error) { return op(ctx) },
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxAttempts-1)), ctx),
	)
}
