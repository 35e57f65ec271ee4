// Package stock implements the inventory ledger arithmetic shared by the
// cart checker, the order admission transaction and the waitlist
// fulfillment transaction.  Everything in this package is pure: callers
// read capacity and committed quantities from the database and feed them
// in; no function here touches storage.
package stock

import "github.com/sooye-park/groupbuy-reservation/internal/model"

// Key identifies committed demand for one variant group.  It is the
// natural aggregation key for order items: two items with the same triple
// compete for the same physical stock.
type Key struct {
    ProductID      uint64
    RoundID        uint64
    VariantGroupID uint64
}

// Availability is the result of reconciling a variant group's configured
// capacity against committed demand.  Remaining holds the true signed
// value; a negative number means capacity was reduced below already
// committed volume (a data-integrity condition kept visible for
// diagnostics).  When Unlimited is true, Remaining is meaningless.
type Availability struct {
    Unlimited bool
    Remaining int64
}

// Compute returns the availability for a variant group with the given
// capacity and committed quantity.  A nil capacity, or the legacy -1
// sentinel, means unlimited.  This function is total: it has no failure
// modes.
func Compute(totalPhysicalStock *int64, committed int64) Availability {
    if totalPhysicalStock == nil || *totalPhysicalStock == model.UnlimitedStock {
        return Availability{Unlimited: true}
    }
    return Availability{Remaining: *totalPhysicalStock - committed}
}

// CanSatisfy reports whether a request for qty more units fits in the
// remaining availability.
func (a Availability) CanSatisfy(qty int64) bool {
    if a.Unlimited {
        return true
    }
    return qty <= a.Remaining
}

// Clamped returns the remaining stock clamped to zero, the value shown to
// customers.  Diagnostics should read Remaining instead.
func (a Availability) Clamped() int64 {
    if a.Unlimited || a.Remaining < 0 {
        return 0
    }
    return a.Remaining
}
