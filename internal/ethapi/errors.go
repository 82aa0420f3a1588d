// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package ethapi

import (
	"errors"
	"fmt"
)

const (
	errCodeNotFound            = -32001
	errCodeUnsupported         = -32004
	errCodeExecutionFailed     = -32015
	errCodeClientLimitExceeded = -38026
	errCodeInternalError       = -32603
	errCodeInvalidParams       = -32602
)

// Kind classifies the errors returned by the tracing endpoints.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnsupported
	KindExecutionFailed
	KindLimitExceeded
	KindInternal
	KindInvalidParams
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnsupported:
		return "unsupported"
	case KindExecutionFailed:
		return "execution_failed"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindInternal:
		return "internal"
	case KindInvalidParams:
		return "invalid_params"
	default:
		return "unknown"
	}
}

// NotFoundError is returned when a block or transaction is unknown.
type NotFoundError struct{ message string }

func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{message: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string  { return e.message }
func (e *NotFoundError) ErrorCode() int { return errCodeNotFound }

// UnsupportedError is returned for requests the backend cannot serve.
type UnsupportedError struct{ message string }

func NewUnsupportedError(format string, args ...any) *UnsupportedError {
	return &UnsupportedError{message: fmt.Sprintf(format, args...)}
}

func (e *UnsupportedError) Error() string  { return e.message }
func (e *UnsupportedError) ErrorCode() int { return errCodeUnsupported }

// ExecutionFailedError reports a failed replay. The cause is exposed as error data.
type ExecutionFailedError struct {
	cause error
}

func NewExecutionFailedError(cause error) *ExecutionFailedError {
	return &ExecutionFailedError{cause: cause}
}

func (e *ExecutionFailedError) Error() string {
	if e.cause == nil {
		return "replay failed"
	}
	return "replay failed: " + e.cause.Error()
}

func (e *ExecutionFailedError) Unwrap() error  { return e.cause }
func (e *ExecutionFailedError) ErrorCode() int { return errCodeExecutionFailed }

// ErrorData returns the text of the underlying cause.
func (e *ExecutionFailedError) ErrorData() any {
	if e.cause == nil {
		return nil
	}
	return e.cause.Error()
}

// LimitExceededError is returned when a request goes over a configured limit.
type LimitExceededError struct{ message string }

func NewLimitExceededError(format string, args ...any) *LimitExceededError {
	return &LimitExceededError{message: fmt.Sprintf(format, args...)}
}

func (e *LimitExceededError) Error() string  { return e.message }
func (e *LimitExceededError) ErrorCode() int { return errCodeClientLimitExceeded }

// InternalError wraps an unexpected failure.
type InternalError struct {
	message string
	cause   error
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{message: message, cause: cause}
}

func (e *InternalError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *InternalError) Unwrap() error  { return e.cause }
func (e *InternalError) ErrorCode() int { return errCodeInternalError }

// InvalidParamsError is returned for malformed request parameters.
type InvalidParamsError struct{ message string }

func NewInvalidParamsError(format string, args ...any) *InvalidParamsError {
	return &InvalidParamsError{message: fmt.Sprintf(format, args...)}
}

func (e *InvalidParamsError) Error() string  { return e.message }
func (e *InvalidParamsError) ErrorCode() int { return errCodeInvalidParams }

// KindOf classifies err by the first typed error found in its chain.
func KindOf(err error) Kind {
	var (
		notFound    *NotFoundError
		unsupported *UnsupportedError
		failed      *ExecutionFailedError
		limit       *LimitExceededError
		internal    *InternalError
		params      *InvalidParamsError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &unsupported):
		return KindUnsupported
	case errors.As(err, &failed):
		return KindExecutionFailed
	case errors.As(err, &limit):
		return KindLimitExceeded
	case errors.As(err, &internal):
		return KindInternal
	case errors.As(err, &params):
		return KindInvalidParams
	}
	return KindUnknown
}
