package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/graficahorizonte/payments-go/internal/infra/resilience"
)

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	attempts := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

	wantErr := errors.New("permanent")
	attempts := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}

func TestRetryWithBackoff_NoRetries(t *testing.T) {
	attempts := 0
	_ = resilience.RetryWithBackoff(context.Background(), resilience.Config{}, func() error {
		attempts++
		return errors.New("boom")
	})
	if attempts != 1 {
		t.Errorf("expected a single attempt with MaxRetries=0, got %d", attempts)
	}
}

func TestRetryWithBackoff_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}, func() error {
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test")

	boom := errors.New("boom")
	for i := 0; i < 6; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, boom })
	}

	if cb.State().String() != "open" {
		t.Errorf("expected open breaker after repeated failures, got %s", cb.State())
	}
}

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := resilience.NewBulkhead(1)
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	blocked, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := b.Acquire(blocked); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected second acquire to block until deadline, got %v", err)
	}

	b.Release()
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("acquire after release: %v", err)
	}
}
