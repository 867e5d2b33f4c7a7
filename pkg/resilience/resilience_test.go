package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	calls := 0
	policy := NewRetryPolicy(3, time.Millisecond)
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryPolicyExhaustsBudget(t *testing.T) {
	calls := 0
	policy := NewRetryPolicy(2, time.Millisecond)
	err := policy.Do(context.Background(), func() error {
		calls++
		return errors.New("still failing")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	policy := NewRetryPolicy(5, 10*time.Millisecond)
	_ = policy.Do(ctx, func() error {
		calls++
		return errors.New("nope")
	})
	if calls != 1 {
		t.Fatalf("expected single call under cancelled context, got %d", calls)
	}
}

func TestIsRateLimit(t *testing.T) {
	err := RateLimitError{Provider: "gemini", Message: "429"}
	if !IsRateLimit(err) {
		t.Fatalf("expected rate limit detection")
	}
	if IsRateLimit(errors.New("other")) {
		t.Fatalf("unexpected rate limit detection")
	}
}

func TestCircuitBreakerOpensAfterRateLimits(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	rl := RateLimitError{Provider: "groq"}
	cb.OnError(rl)
	if !cb.Allow() {
		t.Fatalf("breaker open too early")
	}
	cb.OnError(rl)
	if cb.Allow() {
		t.Fatalf("breaker should be open after threshold")
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestSemaphoreCapsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if sem.TryAcquire() {
		t.Fatalf("expected semaphore full")
	}
	sem.Release()
	if !sem.TryAcquire() {
		t.Fatalf("expected slot after release")
	}
}

func TestSemaphoreAcquireHonorsContext(t *testing.T) {
	sem := NewSemaphore(1)
	_ = sem.Acquire(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := sem.Acquire(ctx); err == nil {
		t.Fatalf("expected context error on full semaphore")
	}
}
