package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusError struct {
	code int
}

func (e statusError) Error() string   { return "http error" }
func (e statusError) StatusCode() int { return e.code }

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil, fastConfig())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_FatalStopsImmediately(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return &FatalError{Err: errors.New("bad request")}
	}, nil, fastConfig())
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("fatal error must not retry, got %d calls", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("still broken")
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return sentinel
	}, nil, fastConfig())
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("final error should wrap the last failure, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestWithRetry_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetryConfig(ctx, func() error {
		return errors.New("never reached after cancel")
	}, nil, fastConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAdaptiveLimiter_Adjusts(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)

	lim.Throttled()
	if got := lim.CurrentLimit(); got != 2 {
		t.Errorf("expected limit halved to 2, got %v", got)
	}
	lim.Throttled()
	lim.Throttled()
	if got := lim.CurrentLimit(); got != 1 {
		t.Errorf("expected floor at 1, got %v", got)
	}

	// Success within 10s of an error must not raise the limit.
	lim.Success()
	if got := lim.CurrentLimit(); got != 1 {
		t.Errorf("expected limit pinned after recent error, got %v", got)
	}
}

func TestIsThrottleError(t *testing.T) {
	if !isThrottleError(statusError{code: 429}) {
		t.Error("429 should throttle")
	}
	if !isThrottleError(statusError{code: 503}) {
		t.Error("503 should throttle")
	}
	if isThrottleError(statusError{code: 400}) {
		t.Error("400 should not throttle")
	}
	if isThrottleError(errors.New("plain")) {
		t.Error("plain errors should not throttle")
	}
}
