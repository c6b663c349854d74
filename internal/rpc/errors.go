package rpc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an upstream failure so callers can decide between
// substituting a default and propagating.
type ErrorKind string

const (
	// KindRetryExhausted means every attempt hit a transient condition
	// (429 or timeout) and the retry budget ran out.
	KindRetryExhausted ErrorKind = "retry_exhausted"
	// KindRejected means the provider answered with a non-retryable
	// failure, usually a malformed request. Retrying wastes quota.
	KindRejected ErrorKind = "rejected"
)

// Error is the failure type returned by the client. Action and Key carry
// enough request context for a caller to log and degrade.
type Error struct {
	Kind     ErrorKind
	Action   string
	Key      string
	Endpoint string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc %s (action=%s key=%s endpoint=%s status=%d): %v",
		e.Kind, e.Action, e.Key, e.Endpoint, e.Status, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is a non-retryable provider rejection.
func IsRejected(err error) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Kind == KindRejected
}

// IsRetryExhausted reports whether err ran out of retry attempts.
func IsRetryExhausted(err error) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Kind == KindRetryExhausted
}
