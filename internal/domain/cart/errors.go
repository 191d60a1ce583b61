package cart

import (
	"context"
	"errors"

	"github.com/dronestore/storefront/internal/domain/shared"
)

// Remote outcome errors. A nil error means Ok.
var (
	ErrStockConflict    = shared.NewDomainError("STOCK_CONFLICT", "Requested quantity exceeds available stock")
	ErrAuthRequired     = shared.NewDomainError("AUTH_REQUIRED", "Authentication required")
	ErrTransportFailure = shared.NewDomainError("TRANSPORT_FAILURE", "Remote cart request failed")
)

// Outcome classifies the result of a remote cart operation
type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeStockConflict
	OutcomeAuthRequired
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeStockConflict:
		return "stock_conflict"
	case OutcomeAuthRequired:
		return "auth_required"
	default:
		return "failure"
	}
}

// OutcomeOf maps an error returned by a gateway to its outcome
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOk
	case errors.Is(err, ErrStockConflict):
		return OutcomeStockConflict
	case errors.Is(err, ErrAuthRequired):
		return OutcomeAuthRequired
	default:
		return OutcomeFailure
	}
}

// IsCancellation reports whether err came from a cancelled or expired context
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
