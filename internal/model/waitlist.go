package model

import "time"

// WaitlistEntry is a pending demand record awaiting capacity, as stored in
// the `waitlist_entries` table.  Entries are strictly FIFO by enqueue time;
// equal timestamps are broken deterministically by the auto-increment ID.
// An entry's quantity is only ever reduced (partial fulfillment) or the
// entry removed (full fulfillment), never increased, so its created_at,
// and therefore its queue position, is preserved across partial
// conversions.
type WaitlistEntry struct {
    ID             uint64    // waitlist_entries.id
    RoundID        uint64    // waitlist_entries.round_id
    VariantGroupID uint64    // waitlist_entries.variant_group_id
    ItemID         uint64    // waitlist_entries.item_id
    UserID         uint64    // waitlist_entries.user_id
    Quantity       int64     // waitlist_entries.quantity (> 0)
    CreatedAt      time.Time // waitlist_entries.created_at (enqueue time)
}
