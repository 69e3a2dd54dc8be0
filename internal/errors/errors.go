// internal/errors/errors.go

// Package errors classifies failures of the recipe service so the REST layer
// and the CLI can map them to statuses, exit codes and user-facing messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code categorizes an error.
type Code string

const (
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeFetchFailed       Code = "FETCH_FAILED"
	CodePersistenceFailed Code = "PERSISTENCE_FAILED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Default user messages, as shown by the web client.
const (
	MsgFetchFailed   = "Failed to scrape recipe. Make sure the URL is valid."
	MsgSaveFailed    = "Error saving recipe"
	MsgListFailed    = "Error retrieving recipes"
	MsgDeleteFailed  = "Error deleting recipe"
	MsgNotFound      = "Recipe not found"
	MsgInternalError = "Internal server error"
)

// Error is a classified error carrying an optional user-facing message.
type Error struct {
	Code        Code
	Message     string
	UserMessage string
	Cause       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithUserMessage sets the message returned to clients.
func (e *Error) WithUserMessage(msg string) *Error {
	e.UserMessage = msg
	return e
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput = &Error{Code: CodeInvalidInput}
	ErrFetch        = &Error{Code: CodeFetchFailed}
	ErrPersistence  = &Error{Code: CodePersistenceFailed}
	ErrNotFound     = &Error{Code: CodeNotFound}
)

// Input reports a missing or malformed caller input. The message is shown to
// the caller verbatim.
func Input(format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Code: CodeInvalidInput, Message: msg, UserMessage: msg}
}

// Fetch wraps a failure to retrieve a page.
func Fetch(cause error, format string, args ...interface{}) *Error {
	return &Error{
		Code:        CodeFetchFailed,
		Message:     fmt.Sprintf(format, args...),
		UserMessage: MsgFetchFailed,
		Cause:       cause,
	}
}

// Persistence wraps a storage failure.
func Persistence(cause error, format string, args ...interface{}) *Error {
	return &Error{
		Code:        CodePersistenceFailed,
		Message:     fmt.Sprintf(format, args...),
		UserMessage: MsgSaveFailed,
		Cause:       cause,
	}
}

// NotFound reports a missing record.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf(format, args...),
		UserMessage: MsgNotFound,
	}
}

// Internal wraps an unexpected failure.
func Internal(cause error, format string, args ...interface{}) *Error {
	return &Error{
		Code:        CodeInternal,
		Message:     fmt.Sprintf(format, args...),
		UserMessage: MsgInternalError,
		Cause:       cause,
	}
}

// CodeOf returns the code of the outermost classified error in err's chain,
// or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// UserMessage returns the client-facing message for err, falling back to
// fallback when err carries none.
func UserMessage(err error, fallback string) string {
	var e *Error
	if stderrors.As(err, &e) && e.UserMessage != "" {
		return e.UserMessage
	}
	return fallback
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeFetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case CodeInvalidInput:
		return 2
	case CodeFetchFailed:
		return 3
	case CodePersistenceFailed:
		return 4
	case CodeNotFound:
		return 5
	default:
		return 1
	}
}

// FormatForCLI renders err for terminal output.
func FormatForCLI(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	msg := UserMessage(err, err.Error())
	if verbose && msg != err.Error() {
		return fmt.Sprintf("Error: %s\n  details: %v\n", msg, err)
	}
	return fmt.Sprintf("Error: %s\n", msg)
}
