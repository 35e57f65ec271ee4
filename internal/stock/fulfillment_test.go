package stock

import (
    "errors"
    "testing"
    "time"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
)

const targetGroup = uint64(100)

func entryAt(id uint64, user uint64, qty int64, offsetSec int) model.WaitlistEntry {
    base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
    return model.WaitlistEntry{
        ID:             id,
        RoundID:        10,
        VariantGroupID: targetGroup,
        ItemID:         1000,
        UserID:         user,
        Quantity:       qty,
        CreatedAt:      base.Add(time.Duration(offsetSec) * time.Second),
    }
}

func acceptAll(model.WaitlistEntry, int64) error { return nil }

func waitlistTotal(entries []model.WaitlistEntry, res FulfillResult) int64 {
    // Remaining waitlist quantity after applying the result: converted
    // entries keep only their remainder, everything else is untouched.
    remainder := make(map[uint64]int64, len(res.Conversions))
    converted := make(map[uint64]bool, len(res.Conversions))
    for _, c := range res.Conversions {
        remainder[c.Entry.ID] = c.Remainder
        converted[c.Entry.ID] = true
    }
    var total int64
    for _, e := range entries {
        if converted[e.ID] {
            total += remainder[e.ID]
            continue
        }
        total += e.Quantity
    }
    return total
}

func TestFulfillSingleEntryFullyConverted(t *testing.T) {
    entries := []model.WaitlistEntry{entryAt(1, 7, 3, 0)}
    res := Fulfill(entries, targetGroup, 5, acceptAll)

    if res.ConvertedCount() != 1 || res.FailedCount != 0 {
        t.Fatalf("converted=%d failed=%d, want 1/0", res.ConvertedCount(), res.FailedCount)
    }
    c := res.Conversions[0]
    if c.Quantity != 3 || c.Remainder != 0 {
        t.Fatalf("conversion = %d (remainder %d), want 3 (remainder 0)", c.Quantity, c.Remainder)
    }
    if res.Leftover != 2 {
        t.Fatalf("leftover = %d, want 2 (unclaimed increment stays available)", res.Leftover)
    }
}

func TestFulfillFIFOFairnessWithPartialSplit(t *testing.T) {
    // t1 < t2 < t3; increment covers t1 fully and t2 partially.
    entries := []model.WaitlistEntry{
        entryAt(3, 30, 4, 20), // t3, enqueued last
        entryAt(1, 10, 2, 0),  // t1
        entryAt(2, 20, 3, 10), // t2
    }
    var order []uint64
    res := Fulfill(entries, targetGroup, 4, func(e model.WaitlistEntry, qty int64) error {
        order = append(order, e.ID)
        return nil
    })

    if len(order) != 2 || order[0] != 1 || order[1] != 2 {
        t.Fatalf("conversion order = %v, want [1 2]", order)
    }
    if res.Conversions[0].Quantity != 2 || res.Conversions[0].Remainder != 0 {
        t.Fatalf("t1: got %d/%d, want fully converted", res.Conversions[0].Quantity, res.Conversions[0].Remainder)
    }
    if res.Conversions[1].Quantity != 2 || res.Conversions[1].Remainder != 1 {
        t.Fatalf("t2: got %d (remainder %d), want 2 (remainder 1)", res.Conversions[1].Quantity, res.Conversions[1].Remainder)
    }
    if res.Leftover != 0 {
        t.Fatalf("leftover = %d, want 0", res.Leftover)
    }
}

func TestFulfillConservation(t *testing.T) {
    entries := []model.WaitlistEntry{
        entryAt(1, 10, 2, 0),
        entryAt(2, 20, 5, 1),
        entryAt(3, 30, 1, 2),
    }
    before := int64(2 + 5 + 1)
    res := Fulfill(entries, targetGroup, 6, acceptAll)

    var convertedTotal int64
    for _, c := range res.Conversions {
        convertedTotal += c.Quantity
    }
    after := waitlistTotal(entries, res)
    if before != after+convertedTotal {
        t.Fatalf("quantity not conserved: before=%d after=%d converted=%d", before, after, convertedTotal)
    }
}

func TestFulfillPartialFailureIsolation(t *testing.T) {
    entries := []model.WaitlistEntry{
        entryAt(1, 10, 2, 0),
        entryAt(2, 20, 3, 1),
        entryAt(3, 30, 1, 2),
    }
    failUser20 := func(e model.WaitlistEntry, qty int64) error {
        if e.UserID == 20 {
            return errors.New("order write failed")
        }
        return nil
    }
    res := Fulfill(entries, targetGroup, 10, failUser20)

    if res.FailedCount != 1 {
        t.Fatalf("failed = %d, want 1", res.FailedCount)
    }
    if res.ConvertedCount() != 2 {
        t.Fatalf("converted = %d, want 2 (t1 and t3 still fulfilled)", res.ConvertedCount())
    }
    for _, c := range res.Conversions {
        if c.Entry.UserID == 20 {
            t.Fatal("failed entry must not appear among conversions")
        }
    }
    // The failed entry's stock was not consumed.
    if res.Leftover != 10-2-1 {
        t.Fatalf("leftover = %d, want %d", res.Leftover, 10-2-1)
    }
}

func TestFulfillSkipsOtherVariantGroups(t *testing.T) {
    other := entryAt(2, 20, 4, 0)
    other.VariantGroupID = 999
    entries := []model.WaitlistEntry{other, entryAt(1, 10, 2, 5)}

    res := Fulfill(entries, targetGroup, 10, func(e model.WaitlistEntry, qty int64) error {
        if e.VariantGroupID != targetGroup {
            t.Fatalf("converted entry from foreign group %d", e.VariantGroupID)
        }
        return nil
    })
    if res.ConvertedCount() != 1 {
        t.Fatalf("converted = %d, want 1", res.ConvertedCount())
    }
    if res.Leftover != 8 {
        t.Fatalf("leftover = %d, want 8", res.Leftover)
    }
}

func TestFulfillTieBreakByID(t *testing.T) {
    // Same enqueue timestamp: lower ID wins.
    a := entryAt(2, 20, 1, 0)
    b := entryAt(1, 10, 1, 0)
    var order []uint64
    Fulfill([]model.WaitlistEntry{a, b}, targetGroup, 1, func(e model.WaitlistEntry, qty int64) error {
        order = append(order, e.ID)
        return nil
    })
    if len(order) != 1 || order[0] != 1 {
        t.Fatalf("conversion order = %v, want [1]", order)
    }
}

func TestFulfillExhaustedIncrementLeavesTailQueued(t *testing.T) {
    entries := []model.WaitlistEntry{
        entryAt(1, 10, 3, 0),
        entryAt(2, 20, 2, 1),
    }
    res := Fulfill(entries, targetGroup, 3, acceptAll)
    if res.ConvertedCount() != 1 {
        t.Fatalf("converted = %d, want 1", res.ConvertedCount())
    }
    if res.Conversions[0].Entry.ID != 1 {
        t.Fatalf("converted entry = %d, want 1", res.Conversions[0].Entry.ID)
    }
    if res.Leftover != 0 {
        t.Fatalf("leftover = %d, want 0", res.Leftover)
    }
}

func TestFulfillEmptyWaitlist(t *testing.T) {
    res := Fulfill(nil, targetGroup, 5, func(model.WaitlistEntry, int64) error {
        t.Fatal("convert must not be called for an empty waitlist")
        return nil
    })
    if res.ConvertedCount() != 0 || res.FailedCount != 0 || res.Leftover != 5 {
        t.Fatalf("unexpected result for empty waitlist: %+v", res)
    }
}

func TestFulfillDoesNotMutateInput(t *testing.T) {
    entries := []model.WaitlistEntry{
        entryAt(2, 20, 3, 10),
        entryAt(1, 10, 2, 0),
    }
    Fulfill(entries, targetGroup, 10, acceptAll)
    if entries[0].ID != 2 || entries[1].ID != 1 {
        t.Fatal("input slice order was mutated")
    }
    if entries[0].Quantity != 3 || entries[1].Quantity != 2 {
        t.Fatal("input quantities were mutated")
    }
}
