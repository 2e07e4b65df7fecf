// Package apierr is the taxonomy of §7: business errors the core raises and
// the HTTP status a caller should see for each.
package apierr

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e APIError) Error() string {
	return e.Message
}

const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeTransientStorage    = "TRANSIENT_STORAGE_ERROR"
	CodeValidation          = "VALIDATION_ERROR"
	CodeAPIKeyRequired      = "API_KEY_REQUIRED"
)

func NewInvalidAmount(message string) APIError {
	return APIError{Code: CodeInvalidAmount, Message: message, Status: http.StatusBadRequest}
}

func NewInsufficientCredits() APIError {
	return APIError{Code: CodeInsufficientCredits, Message: "Insufficient credits", Status: http.StatusPaymentRequired}
}

func NewNotFound(resource string) APIError {
	return APIError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), Status: http.StatusNotFound}
}

func NewConflict(message string) APIError {
	return APIError{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

func NewTransientStorage(message string) APIError {
	return APIError{Code: CodeTransientStorage, Message: message, Status: http.StatusServiceUnavailable}
}

func NewValidation(message string) APIError {
	return APIError{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

func NewAPIKeyRequired() APIError {
	return APIError{Code: CodeAPIKeyRequired, Message: "API key required", Status: http.StatusUnauthorized}
}

// Is* helpers let callers branch on taxonomy without importing net/http.
func IsInsufficientCredits(err error) bool {
	apiErr, ok := err.(APIError)
	return ok && apiErr.Code == CodeInsufficientCredits
}

func IsInvalidAmount(err error) bool {
	apiErr, ok := err.(APIError)
	return ok && apiErr.Code == CodeInvalidAmount
}

func IsNotFound(err error) bool {
	apiErr, ok := err.(APIError)
	return ok && apiErr.Code == CodeNotFound
}
