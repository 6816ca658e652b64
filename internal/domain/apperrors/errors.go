// Package apperrors defines the error taxonomy shared by the gateway,
// the services and the presentation layer.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error kinds, used as log fields and metric labels
const (
	KindValidation = "validation"
	KindConnection = "connection"
	KindAPI        = "api"
	KindProtocol   = "protocol"
	KindCanceled   = "canceled"
	KindUnknown    = "unknown"
)

// ValidationError reports malformed caller input (address, hash, network)
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError creates a validation error
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ConnectionError reports a transport-level failure talking to the indexer
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failure during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// APIError reports a failure envelope returned by the indexer.
// Message is the indexer's message, verbatim.
type APIError struct {
	Op      string
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("indexer error during %s: %s (%s)", e.Op, e.Message, e.Detail)
	}
	return fmt.Sprintf("indexer error during %s: %s", e.Op, e.Message)
}

// ProtocolError reports a response whose shape could not be understood
type ProtocolError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response during %s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("unexpected response during %s: %s", e.Op, e.Detail)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Kind classifies err into one of the Kind constants
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	var apiErr *APIError
	var protocolErr *ProtocolError
	var connErr *ConnectionError

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !errors.As(err, &connErr):
		return KindCanceled
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &apiErr):
		return KindAPI
	case errors.As(err, &protocolErr):
		return KindProtocol
	case errors.As(err, &connErr):
		return KindConnection
	default:
		return KindUnknown
	}
}

// IsRateLimited reports whether err is the indexer rejecting a call for
// exceeding its rate limit
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	text := strings.ToLower(apiErr.Message + " " + apiErr.Detail)
	return strings.Contains(text, "rate limit")
}

// IsRetryable reports whether a later attempt of the same call may succeed
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	return IsRateLimited(err)
}
