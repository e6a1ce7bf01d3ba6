package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the service. Callers distinguish validation
// faults from state-conflict faults and from the expected
// no-admin-available outcome by code, never by message text.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeStateConflict    = "STATE_CONFLICT"
	CodeNoAdminAvailable = "NO_ADMIN_AVAILABLE"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternalError    = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewStateConflict signals an operation rejected by the appeal state
// machine, such as mutating a closed appeal. Recoverable by the caller
// as a no-op.
func NewStateConflict(message string, details map[string]any) error {
	return NewDomainError(CodeStateConflict, message, http.StatusConflict, details)
}

// NewNoAdminAvailable is the expected outcome when selection finds no
// eligible admin. The appeal stays unassigned in the general queue.
func NewNoAdminAvailable(details map[string]any) error {
	return NewDomainError(CodeNoAdminAvailable, "no admin available", http.StatusServiceUnavailable, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation fault.
func IsValidation(err error) bool {
	return IsCode(err, CodeValidationFailed)
}

// IsStateConflict reports whether err is a state-conflict fault.
func IsStateConflict(err error) bool {
	return IsCode(err, CodeStateConflict)
}

// IsNoAdminAvailable reports whether err is the no-admin outcome.
func IsNoAdminAvailable(err error) bool {
	return IsCode(err, CodeNoAdminAvailable)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
