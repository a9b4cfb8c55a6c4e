package util

import (
	"context"
	"time"
)

// RetryWithContext calls fn up to maxTries times until it returns nil error,
// or until ctx is done. If maxTries <= 0, it defaults to 1.
//
// Deadline errors produced inside fn (for example by WithTimeout) count as a
// normal failed attempt. Only cancellation of ctx itself stops the loop early,
// in which case ctx.Err() is returned.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
	}
	return zero, lastErr
}

// RetryErrWithContext is RetryWithContext for functions without a result.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Attempt runs fn with RetryWithContext and never fails: once the attempts are
// exhausted (or ctx is cancelled) the value returned by onExhausted is used.
// onExhausted receives the last error and is the place to log it.
func Attempt[T any](
	ctx context.Context,
	maxTries int,
	fn func(context.Context) (T, error),
	onExhausted func(error) T,
) T {
	result, err := RetryWithContext(ctx, maxTries, fn)
	if err == nil {
		return result
	}
	if onExhausted == nil {
		var zero T
		return zero
	}
	return onExhausted(err)
}

// WithTimeout runs fn under a child context bounded by d. A d <= 0 disables the
// bound. fn's error (context.DeadlineExceeded on timeout) is returned as is.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(callCtx)
}

// WithTimeoutErr is WithTimeout for functions without a result.
func WithTimeoutErr(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	_, err := WithTimeout(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
