package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/syncline/marketsync/internal/marketplace"
)

func TestRetryPolicyRetriesTransient(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &marketplace.TransportError{Op: "op", StatusCode: 503, Err: errors.New("down")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want recovery", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}

	calls := 0
	transient := &marketplace.TransportError{Op: "op", StatusCode: 502, Err: errors.New("down")}
	err := p.Do(context.Background(), func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("err = %v, want last transport error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryPolicyDoesNotRetryNotFound(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("fetch: %w", marketplace.ErrNotFound)
	})
	if !errors.Is(err, marketplace.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, missing resources must not be retried", calls)
	}
}

func TestRetryPolicyDoesNotRetryCredentialErrors(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("auth: %w", marketplace.ErrInvalidCredentials)
	})
	if !errors.Is(err, marketplace.ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, credential errors must not be retried", calls)
	}
}

func TestRetryPolicyRespectsContext(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func() error {
		return &marketplace.TransportError{Op: "op", Err: errors.New("down")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
