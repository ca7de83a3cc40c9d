package utils

import (
	"context"
	"errors"
	"time"
)

var ErrMaxAttempts = errors.New("max attempts reached")

// Retry retries the given function up to maxAttempts with exponential backoff.
// If the function returns nil, it stops retrying. Cancelling ctx aborts the wait between attempts.
func Retry[T any](ctx context.Context, maxAttempts int, initialDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	delay := initialDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt == maxAttempts {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2 // Exponential backoff
	}
	return zero, ErrMaxAttempts
}
