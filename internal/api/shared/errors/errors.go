package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/feral-file/ff-marketplace/internal/auth"
	"github.com/feral-file/ff-marketplace/internal/domain"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeForbidden        ErrorCode = "forbidden"
	ErrCodeConflict         ErrorCode = "conflict"
	ErrCodePaymentFailed    ErrorCode = "payment_failed"
	ErrCodeRateLimited      ErrorCode = "rate_limited"

	// Server and upstream errors (5xx, 424)
	ErrCodeInternalError     ErrorCode = "internal_error"
	ErrCodeFailedDependency  ErrorCode = "failed_dependency"
	ErrCodeDependencyTimeout ErrorCode = "dependency_timeout"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// ErrorResponse is the envelope of every error body
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

func newError(code ErrorCode, message string, details ...string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return newError(ErrCodeBadRequest, message, details...)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return newError(ErrCodeNotFound, message, details...)
}

func NewValidationError(details ...string) *APIError {
	return newError(ErrCodeValidationFailed, "Validation failed", details...)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return newError(ErrCodeUnauthorized, message, details...)
}

func NewForbiddenError(message string, details ...string) *APIError {
	return newError(ErrCodeForbidden, message, details...)
}

func NewConflictError(message string, details ...string) *APIError {
	return newError(ErrCodeConflict, message, details...)
}

func NewRateLimitedError(message string, details ...string) *APIError {
	return newError(ErrCodeRateLimited, message, details...)
}

func NewInternalError(message string, details ...string) *APIError {
	return newError(ErrCodeInternalError, message, details...)
}

// mapping pairs a domain error with its status and code
type mapping struct {
	err    error
	status int
	code   ErrorCode
}

var mappings = []mapping{
	// Authorization
	{domain.ErrNotOwner, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrNotAuthorized, http.StatusForbidden, ErrCodeForbidden},
	{auth.ErrInvalidSignature, http.StatusUnauthorized, ErrCodeUnauthorized},
	{auth.ErrNonceNotFound, http.StatusUnauthorized, ErrCodeUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized, ErrCodeUnauthorized},

	// State conflicts
	{domain.ErrAlreadyListed, http.StatusConflict, ErrCodeConflict},
	{domain.ErrNotActive, http.StatusConflict, ErrCodeConflict},
	{domain.ErrBidTooLow, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAuctionEnded, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAuctionNotEnded, http.StatusConflict, ErrCodeConflict},
	{domain.ErrWrongListingType, http.StatusConflict, ErrCodeConflict},
	{domain.ErrTransactionAlreadyRecorded, http.StatusConflict, ErrCodeConflict},

	// Lookups
	{domain.ErrListingNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrAssetNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrTransactionRecordNotFound, http.StatusNotFound, ErrCodeNotFound},

	// Validation
	{domain.ErrInvalidPrice, http.StatusBadRequest, ErrCodeValidationFailed},
	{domain.ErrInvalidAuctionEndTime, http.StatusBadRequest, ErrCodeValidationFailed},
	{domain.ErrInvalidAddress, http.StatusBadRequest, ErrCodeValidationFailed},
	{domain.ErrInvalidAsset, http.StatusBadRequest, ErrCodeValidationFailed},
	{domain.ErrInvalidListingType, http.StatusBadRequest, ErrCodeValidationFailed},
	{domain.ErrUnsupportedChain, http.StatusBadRequest, ErrCodeValidationFailed},

	// Ledger
	{domain.ErrPaymentFailed, http.StatusPaymentRequired, ErrCodePaymentFailed},
	{domain.ErrTransactionNotFound, http.StatusFailedDependency, ErrCodeFailedDependency},
	{domain.ErrTransactionTimeout, http.StatusGatewayTimeout, ErrCodeDependencyTimeout},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeDependencyTimeout},
}

// FromError maps an error returned by a service to its HTTP status and API error.
// Unknown errors are internal; their text is not exposed.
func FromError(err error) (int, *APIError) {
	for _, m := range mappings {
		if stderrors.Is(err, m.err) {
			return m.status, newError(m.code, m.err.Error(), err.Error())
		}
	}
	return http.StatusInternalServerError, NewInternalError("Internal server error")
}
