// Package retry provides a generic retry loop with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt. It doubles on
	// every subsequent attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential component of the backoff.
	MaxDelay time.Duration

	// Jitter, if non-nil, returns an additional delay for the given
	// attempt number (1-based). It is added on top of the capped
	// exponential delay.
	Jitter func(attempt int) time.Duration
}

// DefaultPolicy matches the copier's retry behavior: 8 attempts, 1s base
// doubling up to 60s, plus 100ms of linear jitter per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 8,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      LinearJitter(100 * time.Millisecond),
	}
}

// LinearJitter returns a jitter function that grows by step with each
// attempt, desynchronizing concurrent retry loops.
func LinearJitter(step time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Delay returns the backoff to sleep after a failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	// Guard against shift overflow for large attempt counts.
	if d < 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		d = p.MaxDelay
	}
	if p.Jitter != nil {
		d += p.Jitter(attempt)
	}
	return d
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, fails permanently, or the policy's attempt
// budget is exhausted. Backoff sleeps respect ctx cancellation. The last
// error is returned on exhaustion.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry: %w", ctx.Err())
			case <-time.After(p.Delay(attempt - 1)):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry: %w", ctx.Err())
		}

		lastErr = err
	}

	return lastErr
}
