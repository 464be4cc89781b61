package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestServiceError_Retryable(t *testing.T) {
	tests := []struct {
		name     string
		err      *ServiceError
		expected bool
	}{
		{"server error", &ServiceError{StatusCode: http.StatusBadGateway}, true},
		{"rate limited", &ServiceError{StatusCode: http.StatusTooManyRequests}, true},
		{"request timeout", &ServiceError{StatusCode: http.StatusRequestTimeout}, true},
		{"unauthorized", &ServiceError{StatusCode: http.StatusUnauthorized}, false},
		{"bad request", &ServiceError{StatusCode: http.StatusBadRequest}, false},
		{"deadline", &ServiceError{Err: context.DeadlineExceeded}, true},
		{"canceled", &ServiceError{Err: context.Canceled}, false},
		{"network timeout", &ServiceError{Err: timeoutErr{}}, true},
		{"decode failure", &ServiceError{Err: errors.New("bad json")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Retryable(); got != tt.expected {
				t.Errorf("Retryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{Service: "tts", Op: "render", StatusCode: 500, Body: "oops"}
	if got := err.Error(); got != "tts render: http 500: oops" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestIsRetryable_Wrapped(t *testing.T) {
	err := fmt.Errorf("render group 2: %w", &ServiceError{StatusCode: 503})
	if !IsRetryable(err) {
		t.Error("expected wrapped 503 to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestMissingCredential(t *testing.T) {
	err := MissingCredential("elevenlabs")
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("a\n  b\tc", 0); got != "a b c" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("got %q", got)
	}
}

func TestCredential(t *testing.T) {
	ctx := context.Background()

	if _, err := Credential(ctx, "tts", ""); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	if key, err := Credential(ctx, "tts", "configured"); err != nil || key != "configured" {
		t.Errorf("fallback: got %q, %v", key, err)
	}

	ctx = WithCredential(ctx, "tts", " per-request ")
	if key, err := Credential(ctx, "tts", "configured"); err != nil || key != "per-request" {
		t.Errorf("override: got %q, %v", key, err)
	}
	if key, _ := Credential(ctx, "ai", "ai-key"); key != "ai-key" {
		t.Errorf("credential leaked across services: %q", key)
	}
	base := context.Background()
	if WithCredential(base, "tts", "  ") != base {
		t.Error("blank key should not wrap the context")
	}
}
