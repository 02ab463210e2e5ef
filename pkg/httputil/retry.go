package httputil

import (
	"context"
	"errors"
	"time"
)

// Backoff is a retry policy: up to Attempts calls, sleeping Delay after the
// first failure and doubling up to MaxDelay. A zero MaxDelay means no cap.
type Backoff struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultBackoff is used by [NewClient].
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second, MaxDelay: 10 * time.Second}

// RetryableError marks a failure as transient. After, when positive, is the
// wait the server asked for and replaces the computed delay for that attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, fails with an error that is not a
// [RetryableError], or the policy runs out of attempts. The last error is
// returned unwrapped from its RetryableError.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay

	for i := 0; ; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		var rerr *RetryableError
		if !errors.As(err, &rerr) {
			return err
		}
		if i == attempts-1 {
			return rerr.Err
		}

		wait := delay
		if rerr.After > 0 {
			wait = rerr.After
		}
		if b.MaxDelay > 0 {
			wait = min(wait, b.MaxDelay)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
