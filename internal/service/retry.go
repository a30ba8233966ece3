package service

import (
	"context"
	"time"

	"github.com/syncline/marketsync/internal/marketplace"
)

// RetryPolicy controls how transient marketplace failures are retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy returns the policy used by the sync pipeline.
// Parameters: none.
// Returns:
//   - RetryPolicy: three attempts with 500ms base backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
	}
}

// Do executes fn, retrying only transient transport failures.
// Credential errors, missing resources and malformed payloads are returned
// immediately. Backoff grows linearly per attempt and respects ctx.
// Parameters:
//   - ctx: cancellation context; a cancelled ctx aborts remaining attempts.
//   - fn: operation to execute.
// Returns:
//   - error: nil on success, the last error otherwise.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !marketplace.IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := p.Backoff * time.Duration(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
