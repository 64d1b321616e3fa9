package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// StatusError reports a non-2xx HTTP response from a marketplace API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// Failure categories used by the top-level run handler.
const (
	CategoryTimeout    = "timeout"
	CategoryConnection = "connection"
	CategoryError      = "error"
)

// Classify buckets an error into one of the failure categories: exceeded
// time budgets, unreachable hosts, and everything else (status errors, data
// errors, decode failures).
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CategoryTimeout
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return CategoryConnection
	}
	return CategoryError
}
