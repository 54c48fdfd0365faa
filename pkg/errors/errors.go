package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound              = "NOT_FOUND"
	CodeValidation            = "VALIDATION_ERROR"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL_ERROR"
	CodeTimeout               = "TIMEOUT"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidDate           = "INVALID_DATE"
	CodeQuotaExceeded         = "QUOTA_EXCEEDED"
	CodeSameDayCancellation   = "SAME_DAY_CANCELLATION"
	CodeIncorrectCode         = "INCORRECT_CODE"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeUpstreamFailure       = "UPSTREAM_FAILURE"
	CodeRateLimited           = "RATE_LIMITED"
)

// AppError is the error type every service returns to the API layer. The
// HTTPStatus is what the handler writes, so legacy status codes are decided
// where the error is raised.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// WithStatus returns a copy of the error reporting a different HTTP status.
func (e *AppError) WithStatus(status int) *AppError {
	clone := *e
	clone.HTTPStatus = status
	return &clone
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{
		"resource": resource,
		"id":       id,
	})
}

func Validation(message string, details map[string]any) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

// Conflict reports a uniqueness violation. The API answers these with 400.
func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusBadRequest)
}

// InvalidDate is answered with 402 for compatibility with existing clients.
func InvalidDate(message string) *AppError {
	return New(CodeInvalidDate, message, http.StatusPaymentRequired)
}

// QuotaExceeded is answered with 401 for compatibility with existing clients.
func QuotaExceeded(message string) *AppError {
	return New(CodeQuotaExceeded, message, http.StatusUnauthorized)
}

func SameDayCancellation(message string) *AppError {
	return New(CodeSameDayCancellation, message, http.StatusPaymentRequired)
}

func IncorrectCode(message string) *AppError {
	return New(CodeIncorrectCode, message, http.StatusNotAcceptable)
}

func InvalidOrExpiredToken(message string) *AppError {
	return New(CodeInvalidOrExpiredToken, message, http.StatusBadRequest)
}

func Upstream(message string, err error) *AppError {
	return Wrap(err, CodeUpstreamFailure, message, http.StatusInternalServerError)
}

func Internal(message string, err error) *AppError {
	return Wrap(err, CodeInternal, message, http.StatusInternalServerError)
}

func Timeout(message string) *AppError {
	return New(CodeTimeout, message, http.StatusGatewayTimeout)
}

func RateLimited(message string) *AppError {
	return New(CodeRateLimited, message, http.StatusTooManyRequests)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
