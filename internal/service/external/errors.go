// Package external holds the error types shared by adapters for remote
// collaborators (speech synthesis, AI generation, persistence).
package external

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrMissingCredential is returned when a collaborator needs an API key that
// was neither configured nor supplied with the request.
var ErrMissingCredential = errors.New("missing credential")

// MissingCredential wraps ErrMissingCredential with the service name.
func MissingCredential(service string) error {
	return fmt.Errorf("%s: %w", service, ErrMissingCredential)
}

// ServiceError is a failed call to a remote collaborator.
type ServiceError struct {
	Service    string
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Body       string
	RetryAfter time.Duration // server-requested delay, if any
	Err        error
}

func (e *ServiceError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Service)
	if e.Op != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Op)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": http %d", e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		sb.WriteString(": ")
		sb.WriteString(body)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the same call may succeed.
func (e *ServiceError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return false
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= http.StatusInternalServerError:
		return true
	case e.StatusCode != 0:
		return false
	}
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr)
}

// IsRetryable reports whether err is a retryable ServiceError.
func IsRetryable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Retryable()
}

// Truncate shortens a response body for error messages.
func Truncate(body string, limit int) string {
	body = strings.Join(strings.Fields(body), " ")
	runes := []rune(body)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return body
}
