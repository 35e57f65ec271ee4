// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP statuses: not-found sentinels become 404, ErrForbidden
// becomes 403, ErrConflict becomes 409.
package repository

import (
    "errors"
    "fmt"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, or that their role does not permit.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as canceling an order that is already past its
// pickup date.
var ErrConflict = errors.New("conflict")

// Not-found sentinels for the catalog hierarchy.  The admission and
// fulfillment transactions treat any of these as terminal: the whole
// transaction is rolled back, no partial reservation is ever created.
var (
    ErrProductNotFound      = errors.New("product not found")
    ErrRoundNotFound        = errors.New("sales round not found")
    ErrVariantGroupNotFound = errors.New("variant group not found")
    ErrItemNotFound         = errors.New("product item not found")
    ErrOrderNotFound        = errors.New("order not found")
    ErrUserNotFound         = errors.New("user not found")
)

// ErrPickupDateMissing signals a data-integrity precondition violation:
// an order references a round whose pickup date was never configured.
var ErrPickupDateMissing = errors.New("pickup date not configured for round")

// InsufficientStockError is the capacity-exceeded failure of the order
// admission transaction.  It names the product and carries the remaining
// quantity (clamped to zero) so callers can show the shortfall.
type InsufficientStockError struct {
    ProductName string
    Remaining   int64
}

func (e *InsufficientStockError) Error() string {
    return fmt.Sprintf("insufficient stock for %q (remaining: %d)", e.ProductName, e.Remaining)
}

// IsInsufficientStock reports whether err wraps an InsufficientStockError
// and returns it when so.
func IsInsufficientStock(err error) (*InsufficientStockError, bool) {
    var ie *InsufficientStockError
    if errors.As(err, &ie) {
        return ie, true
    }
    return nil, false
}
