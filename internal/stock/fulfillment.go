package stock

import (
    "sort"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
)

// ConvertFunc persists one synthesized order for a waitlist entry at the
// given quantity.  It is called inside the enclosing fulfillment
// transaction.  When it returns an error the entry is requeued unchanged
// and counted as a failure; fulfillment of later entries continues.
type ConvertFunc func(entry model.WaitlistEntry, quantity int64) error

// Conversion records one waitlist entry that was (partially) turned into
// an order during a fulfillment walk.
type Conversion struct {
    Entry     model.WaitlistEntry
    Quantity  int64 // quantity converted into an order
    Remainder int64 // quantity left on the waitlist (0 = entry fully consumed)
}

// FulfillResult summarizes a fulfillment walk.  Quantity is conserved:
// the waitlist total before equals the waitlist total after plus the sum
// of converted quantities.
type FulfillResult struct {
    Conversions []Conversion
    FailedCount int
    Leftover    int64 // stock from the increment nobody on the waitlist claimed
}

// ConvertedCount returns the number of entries that produced an order.
func (r FulfillResult) ConvertedCount() int { return len(r.Conversions) }

// Fulfill walks a round's waitlist in strict FIFO order and converts
// entries for the target variant group into orders until the additional
// stock runs out.  Entries belonging to other variant groups are skipped
// untouched.  For each matching entry the fulfillable amount is
// min(entry quantity, available); a partially fulfillable entry is split,
// with the remainder staying queued at its original position.  Ties on
// enqueue time are broken by entry ID so the walk is deterministic.
//
// The convert callback performs the actual order write.  Its errors are
// contained per entry: the entry stays queued with its original quantity,
// the failure is counted and the walk moves on.
func Fulfill(entries []model.WaitlistEntry, variantGroupID uint64, additionalStock int64, convert ConvertFunc) FulfillResult {
    sorted := make([]model.WaitlistEntry, len(entries))
    copy(sorted, entries)
    sort.SliceStable(sorted, func(i, j int) bool {
        if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
            return sorted[i].ID < sorted[j].ID
        }
        return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
    })

    res := FulfillResult{}
    available := additionalStock
    for _, entry := range sorted {
        if entry.VariantGroupID != variantGroupID {
            continue
        }
        fulfillable := entry.Quantity
        if available < fulfillable {
            fulfillable = available
        }
        if fulfillable <= 0 {
            continue
        }
        if err := convert(entry, fulfillable); err != nil {
            res.FailedCount++
            continue
        }
        available -= fulfillable
        res.Conversions = append(res.Conversions, Conversion{
            Entry:     entry,
            Quantity:  fulfillable,
            Remainder: entry.Quantity - fulfillable,
        })
    }
    res.Leftover = available
    return res
}
