// Package errors provides the operation-error taxonomy used throughout
// sparky. Errors are data, not control flow: every constructor here returns
// a plain value that callers inspect or wrap, never a panic or exception.
package errors

import (
	"fmt"
	"strings"
)

// OperationError describes a failed operation with enough context to
// diagnose it without needing to read the call site.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to %s", e.Operation)
	if e.Component != "" {
		fmt.Fprintf(&b, ", component: %s", e.Component)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, ", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ", cause: %s", e.Cause.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a minimal OperationError with no component/resource when
// cause is nil; with a cause it returns a plain wrapped error reading
// "failed to <action>: <cause>".
func FailedTo(action string, cause error) error {
	if cause == nil {
		return &OperationError{Operation: action}
	}
	return fmt.Errorf("failed to %s: %w", action, cause)
}

// FailedToWithDetails builds a fully-qualified OperationError.
func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf prefixes err with a formatted message, or returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// DatabaseError marks a failure in the relational or graph store.
func DatabaseError(operation string, cause error) error {
	return FailedToWithDetails(operation, "database", "", cause)
}

// NetworkError marks a failure reaching a remote endpoint.
func NetworkError(operation, endpoint string, cause error) error {
	return FailedToWithDetails(operation, "network", endpoint, cause)
}

// ValidationError marks a per-field input validation failure.
func ValidationError(field, reason string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, reason)
}

// ConfigurationError marks a fatal, startup-only misconfiguration.
func ConfigurationError(setting, reason string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, reason)
}

// TimeoutError marks a stage or call exceeding its deadline.
func TimeoutError(operation, duration string) error {
	return fmt.Errorf("timeout while %s after %s", operation, duration)
}

// AuthenticationError marks a failed authentication attempt.
func AuthenticationError(reason string) error {
	return fmt.Errorf("authentication failed: %s", reason)
}

// AuthorizationError marks an authorization check that denied an action.
func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

// ParseError marks a failure decoding a document in a given format.
func ParseError(resource, format string, cause error) error {
	return FailedToWithDetails(fmt.Sprintf("parse %s as %s", resource, format), "parser", "", cause)
}

var retryableSubstrings = []string{
	"timeout",
	"connection refused",
	"service unavailable",
	"temporarily unavailable",
	"i/o timeout",
	"connection reset",
}

// IsRetryable reports whether err looks like a transient condition worth
// retrying with backoff (TransientStoreError in spec.md §7).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Chain joins non-nil errors into a single error, or nil if none are set.
func Chain(errs ...error) error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	switch len(msgs) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s", msgs[0])
	default:
		return fmt.Errorf("multiple errors: %s", strings.Join(msgs, "; "))
	}
}
