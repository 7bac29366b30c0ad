package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicySucceedsOnSecondAttempt(t *testing.T) {
	policy := RetryPolicy{Attempts: 1, Delay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryPolicyBoundedAttempts(t *testing.T) {
	policy := RetryPolicy{Attempts: 2, Delay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Do: got %v, want ErrNotFound", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestRetryPolicyDoesNotRetryOtherErrors(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, Delay: time.Millisecond}

	boom := errors.New("boom")
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do: got %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicyZeroAttempts(t *testing.T) {
	policy := RetryPolicy{}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Do: got %v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicyRespectsContext(t *testing.T) {
	policy := RetryPolicy{Attempts: 5, Delay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := policy.Do(ctx, func() error { return ErrNotFound })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do: got %v, want context.Canceled", err)
	}
}
