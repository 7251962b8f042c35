// Package apierr defines the API error envelope. Every non-2xx
// response carries {"error": {"code", "message", "meta"}} with a
// stable machine-readable code the console switches on.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Code is a stable machine-readable error code.
type Code string

const (
	CodeAuthInvalid       Code = "AUTH_INVALID"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION"
	CodeReasonRequired    Code = "REASON_REQUIRED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeStateMismatch     Code = "STATE_MISMATCH"
	CodeLimitViolation    Code = "LIMIT_VIOLATION"
	CodeRGExcluded        Code = "RG_EXCLUDED"
	CodeFeatureDisabled   Code = "FEATURE_DISABLED"
	CodeModuleDisabled    Code = "MODULE_TEMPORARILY_DISABLED"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeConflict          Code = "CONFLICT"
	CodeInternal          Code = "INTERNAL"
)

// httpStatus maps codes to response statuses.
var httpStatus = map[Code]int{
	CodeAuthInvalid:       http.StatusUnauthorized,
	CodeForbidden:         http.StatusForbidden,
	CodeNotFound:          http.StatusNotFound,
	CodeValidation:        http.StatusBadRequest,
	CodeReasonRequired:    http.StatusBadRequest,
	CodeInsufficientFunds: http.StatusConflict,
	CodeStateMismatch:     http.StatusConflict,
	CodeLimitViolation:    http.StatusBadRequest,
	CodeRGExcluded:        http.StatusForbidden,
	CodeFeatureDisabled:   http.StatusForbidden,
	CodeModuleDisabled:    http.StatusServiceUnavailable,
	CodeRateLimited:       http.StatusTooManyRequests,
	CodeConflict:          http.StatusConflict,
	CodeInternal:          http.StatusInternalServerError,
}

// Error is the API error envelope body.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
	cause   error
}

// New creates an API error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an API error preserving the underlying cause for logs
// and errors.Is checks.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithMeta attaches structured detail to the error.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status for the error's code.
func (e *Error) Status() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// From coerces any error into an *Error, defaulting to INTERNAL.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(CodeInternal, "Internal error.", err)
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, err error) {
	e := From(err)
	c.AbortWithStatusJSON(e.Status(), gin.H{"error": e})
}
