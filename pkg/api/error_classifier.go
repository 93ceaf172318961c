package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned by collaborators that have no credential.
var ErrNotConfigured = errors.New("collaborator is not configured")

// StatusError is a non-2xx answer from an upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, body)
}

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	ErrorSeverityTemporary ErrorSeverity = iota
	ErrorSeverityRetryable
	ErrorSeverityFatal // retrying cannot help
)

// ClassifyError classifies err by severity level. Typed errors are checked
// first; anything else falls back to message matching.
func ClassifyError(err error) ErrorSeverity {
	if err == nil {
		return ErrorSeverityTemporary
	}

	if errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ErrorSeverityFatal
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == 429:
			return ErrorSeverityRetryable
		case statusErr.Code >= 400 && statusErr.Code < 500:
			return ErrorSeverityFatal
		default:
			return ErrorSeverityRetryable
		}
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") {
		return ErrorSeverityFatal
	}

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "dns") {
		return ErrorSeverityRetryable
	}

	return ErrorSeverityRetryable
}

// IsRetryable reports whether another attempt may succeed.
func IsRetryable(err error) bool {
	return err != nil && ClassifyError(err) != ErrorSeverityFatal
}
