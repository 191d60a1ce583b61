package shared

import (
	"errors"
	"fmt"
)

// DomainError is a business rule violation identified by a stable code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	return errors.As(target, &other) && other.Code == e.Code
}

// Withf wraps e with a detail, e.g. ErrNotFound.Withf("product %s", id)
func (e *DomainError) Withf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the first DomainError in err's chain,
// or an empty string when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Errors shared by the catalog and cart
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized      = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)
