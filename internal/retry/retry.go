// Package retry wraps storage-backed operations with automatic retry and
// exponential backoff on transient infrastructure failures. Domain errors
// propagate immediately; only connection-level failures are retried.
package retry

import (
	"context"
	"log"
	"time"
)

// Executor holds the backoff policy for a wrapped operation.
type Executor struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultExecutor returns the policy applied to all service operations.
func DefaultExecutor() *Executor {
	return &Executor{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// Do runs op, retrying on transient failures with exponential backoff.
// Permanent failures and exhausted retries return the most recent error
// unchanged. Cancelling ctx while waiting aborts the loop and returns the
// pending error instead of retrying further.
func Do[T any](ctx context.Context, e *Executor, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := e.InitialDelay

	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == e.MaxAttempts {
			break
		}

		log.Printf("transient storage failure (attempt %d/%d), retrying in %s: %v",
			attempt, e.MaxAttempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * e.Multiplier)
		if delay > e.MaxDelay {
			delay = e.MaxDelay
		}
	}

	log.Printf("storage operation failed after %d attempts, giving up: %v", e.MaxAttempts, lastErr)
	return zero, lastErr
}

// DoVoid is Do for operations that return only an error.
func DoVoid(ctx context.Context, e *Executor, op func() error) error {
	_, err := Do(ctx, e, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
