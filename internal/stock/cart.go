package stock

// AdjustQuantity returns the largest quantity that is both at most
// `available` and an integer multiple of the item's stock deduction
// amount.  A zero return means the line item cannot be satisfied at all
// and should be removed from the cart.  Deduction amounts below one are
// treated as one.
func AdjustQuantity(available, stockDeductionAmount int64) int64 {
    if available <= 0 {
        return 0
    }
    if stockDeductionAmount < 1 {
        stockDeductionAmount = 1
    }
    return (available / stockDeductionAmount) * stockDeductionAmount
}
