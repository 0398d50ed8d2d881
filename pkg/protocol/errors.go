// Copyright (C) 2025 Amorce Project
//
// This file is part of amorce-go.
//
// amorce-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// amorce-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with amorce-go.  If not, see <https://www.gnu.org/licenses/>.

package protocol

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind classifies a terminal failure so callers can decide whether to
// retry, alert or abort.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	// ErrKindConfiguration is a caller mistake (bad URL, missing required field). Never retried.
	ErrKindConfiguration
	// ErrKindSecurity is a key loading or signing failure.
	ErrKindSecurity
	// ErrKindValidation is a malformed protocol structure.
	ErrKindValidation
	// ErrKindNetwork means every attempt was used without a usable response.
	ErrKindNetwork
	// ErrKindAPI means the server explicitly rejected the request.
	ErrKindAPI
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindConfiguration:
		return "ConfigurationError"
	case ErrKindSecurity:
		return "SecurityError"
	case ErrKindValidation:
		return "ValidationError"
	case ErrKindNetwork:
		return "NetworkError"
	case ErrKindAPI:
		return "APIError"
	default:
		return "UnknownError"
	}
}

// Error is the single error type surfaced by the SDK.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string

	// StatusCode and Body are set for API errors, and for network errors
	// whose last attempt still produced an HTTP response.
	StatusCode int
	Body       string

	// Attempts is the number of HTTP attempts made before giving up.
	Attempts int

	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s]", e.Kind))
	if e.Op != "" {
		sb.WriteString(" " + e.Op + ":")
	}
	sb.WriteString(" " + e.Message)
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf(" (status %d)", e.StatusCode))
	}
	if e.Attempts > 0 {
		sb.WriteString(fmt.Sprintf(" [attempts: %d]", e.Attempts))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the whole operation later may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ErrKindNetwork:
		return true
	case ErrKindAPI:
		return IsRetryableStatus(e.StatusCode)
	default:
		return false
	}
}

// NewConfigurationError returns a configuration error for op.
func NewConfigurationError(op, format string, args ...any) *Error {
	return &Error{Kind: ErrKindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewSecurityError wraps err as a security error.
func NewSecurityError(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: ErrKindSecurity, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewValidationError returns a validation error for op.
func NewValidationError(op, format string, args ...any) *Error {
	return &Error{Kind: ErrKindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewAPIError records an explicit rejection by the server.
func NewAPIError(op string, statusCode int, body []byte, attempts int) *Error {
	return &Error{
		Kind:       ErrKindAPI,
		Op:         op,
		Message:    "server rejected request",
		StatusCode: statusCode,
		Body:       string(body),
		Attempts:   attempts,
	}
}

// NewNetworkError records that the retry budget ran out. lastStatus is 0
// when the last attempt never produced an HTTP response.
func NewNetworkError(op string, attempts int, lastStatus int, lastBody []byte, cause error) *Error {
	return &Error{
		Kind:       ErrKindNetwork,
		Op:         op,
		Message:    "retries exhausted without a usable response",
		StatusCode: lastStatus,
		Body:       string(lastBody),
		Attempts:   attempts,
		Err:        cause,
	}
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
