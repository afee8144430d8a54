package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with a status code and a message safe to show to the
// client. Err keeps the underlying cause for logging.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(status int, format string, args ...any) *AppError {
	return &AppError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *AppError {
	return newAppError(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *AppError {
	return newAppError(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *AppError {
	return newAppError(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...any) *AppError {
	return newAppError(http.StatusNotFound, format, args...)
}

func TooManyRequests(format string, args ...any) *AppError {
	return newAppError(http.StatusTooManyRequests, format, args...)
}

// Internal wraps an unexpected failure. The cause is never sent to the client.
func Internal(message string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// StatusOf maps any error onto the HTTP taxonomy. Errors that are not
// AppErrors are server errors.
func StatusOf(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}
