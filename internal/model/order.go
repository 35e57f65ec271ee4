package model

import "time"

// Order status values as stored in the `orders.status` column.  Only
// RESERVED and PREPAID count toward committed demand; the remaining
// statuses are terminal and excluded from the stock ledger.
const (
    OrderStatusReserved  = "RESERVED"  // reservation confirmed, not yet paid
    OrderStatusPrepaid   = "PREPAID"   // payment collected ahead of pickup
    OrderStatusPickedUp  = "PICKED_UP" // customer collected the goods
    OrderStatusCompleted = "COMPLETED" // post-pickup settlement finished
    OrderStatusNoShow    = "NO_SHOW"   // customer missed the pickup deadline
    OrderStatusCanceled  = "CANCELED"  // canceled by customer or staff
)

// ActiveOrderStatuses enumerates the statuses that contribute committed
// quantity to availability calculations.
var ActiveOrderStatuses = []string{OrderStatusReserved, OrderStatusPrepaid}

// IsActiveOrderStatus reports whether the given status counts toward
// committed demand.
func IsActiveOrderStatus(status string) bool {
    return status == OrderStatusReserved || status == OrderStatusPrepaid
}

// Order is the unit of committed demand as stored in the `orders` table.
// The customer's phone number is persisted only as its last four digits.
// Orders are never deleted; cancellation is a status change so that
// historical ledger queries stay consistent.
//
// Fields:
//  ID                    – primary key identifier.
//  OrderNumber           – human-facing identifier (GB-... / GB-W-...).
//  UserID                – owning customer.
//  Status                – one of the OrderStatus* constants.
//  TotalPrice            – sum of unit price × quantity across items.
//  CustomerName          – name captured at checkout.
//  CustomerPhoneLast4    – truncated phone suffix (privacy minimization).
//  PickupAt              – pickup date copied from the round.
//  PickupDeadlineAt      – pickup deadline copied from the round (nullable).
//  WasPrepaymentRequired – whether the round demanded prepayment.
//  Notes                 – free-form customer note.
//  CreatedAt             – creation timestamp.
//  CanceledAt            – cancellation timestamp (null while active).
type Order struct {
    ID                    uint64      // orders.id
    OrderNumber           string      // orders.order_number
    UserID                uint64      // orders.user_id
    Status                string      // orders.status
    TotalPrice            int64       // orders.total_price
    CustomerName          string      // orders.customer_name
    CustomerPhoneLast4    string      // orders.customer_phone_last4
    PickupAt              time.Time   // orders.pickup_at
    PickupDeadlineAt      *time.Time  // orders.pickup_deadline_at (nullable)
    WasPrepaymentRequired bool        // orders.was_prepayment_required
    Notes                 string      // orders.notes
    CreatedAt             time.Time   // orders.created_at
    CanceledAt            *time.Time  // orders.canceled_at (nullable)
    Items                 []OrderItem // order_items rows for this order
}

// OrderItem references a `(product, round, variant group, item)` tuple with
// a quantity and the unit price captured at reservation time.  The triple
// (ProductID, RoundID, VariantGroupID) is the natural key used to aggregate
// committed quantity against a variant group's capacity.
type OrderItem struct {
    ID                   uint64 // order_items.id
    OrderID              uint64 // order_items.order_id
    ProductID            uint64 // order_items.product_id
    RoundID              uint64 // order_items.round_id
    VariantGroupID       uint64 // order_items.variant_group_id
    ItemID               uint64 // order_items.item_id
    ProductName          string // order_items.product_name (denormalized for display)
    ItemName             string // order_items.item_name (denormalized for display)
    Quantity             int64  // order_items.quantity
    UnitPrice            int64  // order_items.unit_price
    StockDeductionAmount int64  // order_items.stock_deduction_amount
}
