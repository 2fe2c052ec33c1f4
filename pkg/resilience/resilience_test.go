package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errPermanent = errors.New("no such key")

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "read", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, errPermanent) },
	}, func() error {
		calls++
		return errPermanent
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "read", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("s3", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     10 * time.Millisecond,
		OnStateChange:    func(_ string, to State) { transitions = append(transitions, to) },
		IsFailure:        func(err error) bool { return !errors.Is(err, errPermanent) },
	})
	fail := func() error { return errors.New("boom") }

	cb.Execute(func() error { return errPermanent })
	cb.Execute(fail)
	if cb.GetState() != StateClosed {
		t.Fatal("permanent errors must not count toward the threshold")
	}
	cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	time.Sleep(15 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open request failed: %v", err)
	}
	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "query", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return ctx.Err()
	})
	if !errors.Is(err, ErrDeadline) {
		t.Fatalf("err = %v, want ErrDeadline", err)
	}

	err = WithTimeout(context.Background(), time.Second, "query", func(context.Context) error { return errPermanent })
	if !errors.Is(err, errPermanent) {
		t.Fatalf("err = %v", err)
	}
}

func TestDoReturnsValueOfSuccessfulAttempt(t *testing.T) {
	var attempts []int
	got, err := Do(context.Background(), "read", RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond},
		func(_ context.Context, attempt int) (string, error) {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return "partial", errors.New("transient")
			}
			return "table", nil
		})
	if err != nil || got != "table" {
		t.Fatalf("got %q, %v", got, err)
	}
	if len(attempts) != 2 || attempts[1] != 2 {
		t.Errorf("attempts = %v", attempts)
	}
}

func TestDoStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	got, err := Do(ctx, "read", RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour},
		func(context.Context, int) (int, error) {
			cancel()
			return 7, errors.New("transient")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got != 0 {
		t.Errorf("got %d, want the zero value on failure", got)
	}
}

func TestGuard(t *testing.T) {
	cb := NewCircuitBreaker("s3", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	if v, err := Guard(cb, func() ([]byte, error) { return []byte("ok"), nil }); err != nil || string(v) != "ok" {
		t.Fatalf("got %q, %v", v, err)
	}
	if _, err := Guard(cb, func() ([]byte, error) { return []byte("x"), errors.New("boom") }); err == nil {
		t.Fatal("expected error")
	}
	v, err := Guard(cb, func() ([]byte, error) { return []byte("ok"), nil })
	if !errors.Is(err, ErrCircuitOpen) || v != nil {
		t.Fatalf("got %q, %v, want an open circuit", v, err)
	}
}
