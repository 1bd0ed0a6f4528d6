package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fastConfig(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRecovers(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	sentinel := errors.New("persistent")
	calls := 0
	err := Retry(context.Background(), "bulk-index", fastConfig(4), func() error {
		calls++
		return sentinel
	})
	if err == nil {
		t.Fatal("Retry() expected error")
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Error("final error must wrap the last attempt's error")
	}
	if !strings.Contains(err.Error(), "bulk-index") {
		t.Errorf("error = %v, want the operation named", err)
	}
}

func TestRetryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, "op", fastConfig(5), func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, a canceled context must stop further attempts", calls)
	}
}
