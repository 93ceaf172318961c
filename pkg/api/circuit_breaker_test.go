package api

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(2, time.Minute, clock)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return boom }); err != boom {
			t.Fatalf("expected fn error, got %v", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open circuit, got %v", cb.State())
	}

	called := false
	if err := cb.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while the circuit is open")
	}

	clock.Advance(time.Minute + time.Second)
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("expected probe to run, got %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed circuit after successful probes, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(1, time.Minute, clock)

	cb.Execute(func() error { return errors.New("boom") })
	clock.Advance(2 * time.Minute)
	cb.Execute(func() error { return errors.New("still down") })

	if cb.State() != StateOpen {
		t.Errorf("expected open circuit, got %v", cb.State())
	}
}

func TestCircuitBreaker_IgnoresNotConfigured(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute, clockwork.NewFakeClock())

	cb.Execute(func() error { return ErrNotConfigured })
	if cb.State() != StateClosed {
		t.Errorf("missing configuration must not open the circuit, got %v", cb.State())
	}
}
