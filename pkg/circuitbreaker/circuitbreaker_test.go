package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker(Config{
		FailureThreshold:    3,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Execute #%d = %v, want boom", i, err)
		}
	}

	// 第4次请求应该被熔断器直接拒绝
	err := cb.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("Execute after threshold = %v, want ErrCircuitBreakerOpen", err)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want StateOpen", cb.GetState())
	}
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             10 * time.Millisecond,
		HalfOpenMaxRequests: 2,
	})

	if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("Execute = %v, want boom", err)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want StateOpen", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute in half-open = %v, want nil", err)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after recovery = %v, want nil", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want StateClosed", cb.GetState())
	}
}

func TestResetClosesBreaker(t *testing.T) {
	cb := NewCircuitBreaker(Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Fatalf("state after reset = %v, want StateClosed", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after reset = %v, want nil", err)
	}
}
