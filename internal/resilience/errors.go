// Package resilience provides the circuit breaker, retry, and failure
// taxonomy used around provider lookups.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// FailureKind classifies why a provider lookup contributed nothing.
type FailureKind string

const (
	// FailureTimeout means the per-call deadline expired.
	FailureTimeout FailureKind = "timeout"
	// FailureProvider means the provider returned an error.
	FailureProvider FailureKind = "provider_error"
	// FailureCircuitOpen means the call was rejected without a real attempt.
	FailureCircuitOpen FailureKind = "circuit_open"
)

// ErrCircuitOpen is returned when a lookup is rejected because the
// provider's circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// Classify maps a lookup error onto the failure taxonomy.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return FailureCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return FailureTimeout
		}
		return FailureProvider
	}
}

// TransientError wraps an error that is safe to retry (429, 5xx, network
// flake).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP
// status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether the error chain contains a TransientError or
// matches common transient network failure patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the HTTP status code indicates a
// retriable server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
