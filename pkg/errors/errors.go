package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on error code so callers can use errors.Is against the
// sentinels below regardless of wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrInternal

	// Matching and acceptance codes
	ErrInvalidCoordinate
	ErrInvalidTransition
	ErrIneligible
	ErrAlreadyAssigned
	ErrExpired
	ErrCancelled
)

// Sentinels for errors.Is checks across packages.
var (
	InvalidCoordinate = &AppError{Code: ErrInvalidCoordinate, Message: "coordinate out of range"}
	InvalidTransition = &AppError{Code: ErrInvalidTransition, Message: "invalid status transition"}
	Ineligible        = &AppError{Code: ErrIneligible, Message: "you are no longer eligible for this request"}
	AlreadyAssigned   = &AppError{Code: ErrAlreadyAssigned, Message: "request already taken"}
	Expired           = &AppError{Code: ErrExpired, Message: "request expired"}
	Cancelled         = &AppError{Code: ErrCancelled, Message: "request cancelled"}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewInvalidCoordinate(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidCoordinate,
		Message: message,
	}
}

func NewInvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("invalid status transition %s -> %s", from, to),
	}
}

func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}
