package llm

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	})

	for range 2 {
		if err := cb.Allow(); err != nil {
			t.Fatalf("Allow() while closed: %v", err)
		}
		cb.Failure()
	}
	if got := cb.State(); got != CircuitClosed {
		t.Fatalf("State() after 2 failures = %v, want closed", got)
	}

	cb.Failure()
	if got := cb.State(); got != CircuitOpen {
		t.Fatalf("State() after 3 failures = %v, want open", got)
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	cb.Failure()
	cb.Success()
	cb.Failure()

	// The success in between cleared the count, so one more failure is
	// still below the threshold.
	if got := cb.State(); got != CircuitClosed {
		t.Errorf("State() = %v, want closed", got)
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	})

	cb.Failure()
	if got := cb.State(); got != CircuitOpen {
		t.Fatalf("State() = %v, want open", got)
	}

	time.Sleep(5 * time.Millisecond)

	// Cooldown expired: the next request is admitted as a probe.
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown: %v", err)
	}
	if got := cb.State(); got != CircuitHalfOpen {
		t.Fatalf("State() = %v, want half-open", got)
	}

	cb.Success()
	if got := cb.State(); got != CircuitHalfOpen {
		t.Fatalf("State() after 1 probe success = %v, want half-open", got)
	}
	cb.Success()
	if got := cb.State(); got != CircuitClosed {
		t.Errorf("State() after 2 probe successes = %v, want closed", got)
	}
}

func TestCircuitBreakerProbeFailureReopens(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	})

	cb.Failure()
	time.Sleep(5 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown: %v", err)
	}
	cb.Failure()

	if got := cb.State(); got != CircuitOpen {
		t.Fatalf("State() after probe failure = %v, want open", got)
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() right after reopening = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerDefaults(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	def := DefaultCircuitBreakerConfig()

	if cb.cfg != def {
		t.Errorf("zero config = %+v, want defaults %+v", cb.cfg, def)
	}
}
