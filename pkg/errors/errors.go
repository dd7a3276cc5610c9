package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

// NotAuthorized means the acting user is not the right party (or role) for
// the requested action.
func NotAuthorized(message string) *AppError {
	return &AppError{
		Code:    "NOT_AUTHORIZED",
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// InvalidState means the action is not legal from the entity's current
// status. The message must name the precondition that failed.
func InvalidState(message string) *AppError {
	return &AppError{
		Code:    "INVALID_STATE",
		Message: message,
		Status:  http.StatusConflict,
	}
}

func InvalidAmount(message string) *AppError {
	return &AppError{
		Code:    "INVALID_AMOUNT",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func SelfDealing(message string) *AppError {
	return &AppError{
		Code:    "SELF_DEALING",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// VersionConflict is the optimistic-concurrency signal: a concurrent writer
// won the race. Callers re-read and re-evaluate preconditions before retrying.
func VersionConflict(resource string) *AppError {
	return &AppError{
		Code:    "VERSION_CONFLICT",
		Message: fmt.Sprintf("%s was modified concurrently, please retry", resource),
		Status:  http.StatusConflict,
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// Unavailable marks storage-layer unavailability. No entity mutation has been
// persisted when this is returned; the caller may retry.
func Unavailable(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    "TOO_MANY_REQUESTS",
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
