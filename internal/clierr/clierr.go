// Package clierr defines structured error types shared by the CLI and the
// HTTP API. Errors carry a machine-readable code, a human-readable message,
// optional details, and optionally the underlying cause.
package clierr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error codes are uppercase and underscore-separated. They are part of the CLI and HTTP contract.
const (
	TaskNotFound           = "TASK_NOT_FOUND"
	BoardNotFound          = "BOARD_NOT_FOUND"
	BoardAlreadyExists     = "BOARD_ALREADY_EXISTS"
	InvalidInput           = "INVALID_INPUT"
	InvalidStatus          = "INVALID_STATUS"
	InvalidAuditStatus     = "INVALID_AUDIT_STATUS"
	InvalidFrequency       = "INVALID_FREQUENCY"
	InvalidFrequencyParams = "INVALID_FREQUENCY_PARAMETERS"
	InvalidDate            = "INVALID_DATE"
	InvalidTaskID          = "INVALID_TASK_ID"
	InvalidGroupBy         = "INVALID_GROUP_BY"
	StatusConflict         = "STATUS_CONFLICT"
	StoreFailure           = "STORE_FAILURE"
	HistoryAppendFailure   = "HISTORY_APPEND_FAILURE"
	Unauthorized           = "UNAUTHORIZED"
	RateLimited            = "RATE_LIMITED"
	InternalError          = "INTERNAL_ERROR"
)

// Error represents a structured error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that records cause. The message is prefixed to the
// cause's message.
func Wrap(code string, cause error, message string) *Error {
	msg := message
	if cause != nil {
		msg = message + ": " + cause.Error()
	}
	return &Error{Code: code, Message: msg, Cause: cause}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// ExitCode returns 2 for internal and store failures, 1 for all others.
func (e *Error) ExitCode() int {
	if e.Code == InternalError || e.Code == StoreFailure {
		return 2 //nolint:mnd // exit code 2 for internal errors
	}
	return 1
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case TaskNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case RateLimited:
		return http.StatusTooManyRequests
	case InvalidInput, InvalidStatus, InvalidAuditStatus, InvalidFrequency,
		InvalidFrequencyParams, InvalidDate, InvalidTaskID, InvalidGroupBy:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// SilentError signals an exit code without additional output.
// Used by batch operations where results are already written to stdout.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
