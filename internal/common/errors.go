// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Classification errors.
	ErrNoTransactions = errors.New("no transactions to categorize")
	ErrJobRunning     = errors.New("a categorization job is already running")

	// ErrClient is the base of every classification service failure.
	// Both *TimeoutError and *InvocationError match it with errors.Is.
	ErrClient = errors.New("classification client error")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// TimeoutError reports a classification call that ran past its deadline.
type TimeoutError struct {
	Err     error
	Timeout string
}

func (e *TimeoutError) Error() string {
	if e.Timeout != "" {
		return fmt.Sprintf("classification request timed out after %s: %v", e.Timeout, e.Err)
	}
	return fmt.Sprintf("classification request timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Is makes TimeoutError a ClientError.
func (e *TimeoutError) Is(target error) bool { return target == ErrClient }

// InvocationKind classifies a failed call to the classification service.
type InvocationKind string

// Invocation kinds. Only rate limiting is worth retrying.
const (
	KindRateLimit        InvocationKind = "rate_limit"
	KindAuthentication   InvocationKind = "authentication"
	KindMalformedRequest InvocationKind = "malformed_request"
	KindService          InvocationKind = "service"
)

// InvocationError reports a classification service call the provider rejected.
type InvocationError struct {
	Err        error
	Kind       InvocationKind
	Provider   string
	StatusCode int
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("%s invocation failed (%s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Is makes InvocationError a ClientError.
func (e *InvocationError) Is(target error) bool { return target == ErrClient }

// Retryable reports whether the call may succeed if repeated.
func (e *InvocationError) Retryable() bool { return e.Kind == KindRateLimit }

// PersistenceError reports a failed write of a categorization result.
type PersistenceError struct {
	Err           error
	TransactionID string
	Op            string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s transaction %s: %v", e.Op, e.TransactionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or unusable setting. It is fatal to a job.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Setting, e.Message)
}

// Is lets callers match any ConfigurationError against ErrMissingConfig.
func (e *ConfigurationError) Is(target error) bool { return target == ErrMissingConfig }

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Configuration problems never fix themselves
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return false
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}

	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.Retryable()
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsAuthenticationError reports whether the provider rejected the configured credential.
func IsAuthenticationError(err error) bool {
	var invErr *InvocationError
	return errors.As(err, &invErr) && invErr.Kind == KindAuthentication
}
