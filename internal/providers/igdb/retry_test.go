package igdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), *fastRetry(), func() error {
		calls++
		return &StatusError{StatusCode: http.StatusBadRequest}
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one call and an error, got %d / %v", calls, err)
	}
}

func TestRetryWithBackoffRetriesTransient(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), *fastRetry(), func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("read: %w", &StatusError{StatusCode: http.StatusTooManyRequests})
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second call, got %d / %v", calls, err)
	}
}

func TestRetryWithBackoffRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}
	calls := 0
	err := RetryWithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("connection reset by peer")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{&StatusError{StatusCode: 502}, true},
		{&StatusError{StatusCode: 404}, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("decode igdb response: bad json"), false},
	}
	for _, tc := range tests {
		if got := isTransientError(tc.err); got != tc.want {
			t.Fatalf("isTransientError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
