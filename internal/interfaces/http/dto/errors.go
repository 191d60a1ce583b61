package dto

import (
	"net/http"
	"strings"
)

// Error codes sent in the error envelope, ERR_<CATEGORY>[_<DETAIL>]
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInsufficientStock tells storefront clients to reload the cart
	// and adopt the server's quantities
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"

	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

var statusByCode = map[string]int{
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeTokenExpired:      http.StatusUnauthorized,
	ErrCodeTokenInvalid:      http.StatusUnauthorized,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusConflict,
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidJSON:       http.StatusBadRequest,
	ErrCodeRequestTooLarge:   http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:       http.StatusTooManyRequests,
}

// HTTPStatus returns the status answered with code, 500 when code is unknown
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

var domainCodes = map[string]string{
	"NOT_FOUND":          ErrCodeNotFound,
	"INVALID_INPUT":      ErrCodeInvalidInput,
	"INVALID_STATE":      ErrCodeInvalidState,
	"UNAUTHORIZED":       ErrCodeUnauthorized,
	"INSUFFICIENT_STOCK": ErrCodeInsufficientStock,
}

// FromDomain translates a domain error code. Field-level codes such as
// INVALID_PRICE collapse to ERR_INVALID_INPUT, API codes pass through and
// anything else is internal.
func FromDomain(domainCode string) (code string, status int) {
	switch mapped, ok := domainCodes[domainCode]; {
	case ok:
		code = mapped
	case strings.HasPrefix(domainCode, "INVALID_"):
		code = ErrCodeInvalidInput
	case strings.HasPrefix(domainCode, "ERR_"):
		code = domainCode
	default:
		code = ErrCodeInternal
	}
	return code, HTTPStatus(code)
}
