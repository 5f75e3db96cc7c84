// backend/shared/go-utils/errors.go
package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidPhone = errors.New("invalid_phone")
	ErrNotFound     = errors.New("not_found")
	ErrForbidden    = errors.New("forbidden")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")
	ErrNoRowsUpdated      = errors.New("no_rows_updated")

	// Status machines
	ErrInvalidTransition = errors.New("invalid_transition")

	// For rate limiting
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// For external service failures (Stripe, SendGrid, Twilio, storage)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)

// AppError for structured error handling from services to controllers.
// Details, when set, is serialized into the response body (for example the
// current record on a row_version conflict).
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Details    any
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(status int, code, msg string, err error) *AppError {
	return &AppError{StatusCode: status, Code: code, Message: msg, Err: err}
}

func BadRequest(msg string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, ErrCodeInvalidPayload, msg, err)
}

func ValidationFailed(msg string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, ErrCodeValidation, msg, err)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, ErrCodeUnauthorized, msg, nil)
}

func Forbidden(msg string) *AppError {
	return NewAppError(http.StatusForbidden, ErrCodeForbidden, msg, ErrForbidden)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, ErrCodeNotFound, msg, ErrNotFound)
}

func Conflict(msg string, err error) *AppError {
	return NewAppError(http.StatusConflict, ErrCodeConflict, msg, err)
}

func InvalidTransition(msg string) *AppError {
	return NewAppError(http.StatusConflict, ErrCodeInvalidTransition, msg, ErrInvalidTransition)
}

// VersionConflict answers 409 with the row as it currently exists.
func VersionConflict(current any) *AppError {
	return &AppError{
		StatusCode: http.StatusConflict,
		Code:       ErrCodeRowVersionConflict,
		Message:    "The record was modified by someone else; reload and retry",
		Details:    current,
		Err:        ErrRowVersionConflict,
	}
}

func ExternalFailure(msg string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, ErrCodeExternalServiceFailure, msg, err)
}

func Internal(msg string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, ErrCodeInternal, msg, err)
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, appErr.Details, appErr.Err)
	} else {
		// Fallback for unexpected error types
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
