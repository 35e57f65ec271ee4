// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderReservedEvent is published after an order admission transaction
// commits.  It contains enough information for downstream consumers to
// log or notify without querying the primary database.
type OrderReservedEvent struct {
    OrderID     uint64 `json:"order_id"`
    OrderNumber string `json:"order_number"`
    UserID      uint64 `json:"user_id"`
    TotalPrice  int64  `json:"total_price"`
    ItemCount   int    `json:"item_count"`
    PickupAt    string `json:"pickup_at"`
    ReservedAt  string `json:"reserved_at"`
}

// WaitlistConfirmedEvent is published once per waitlist entry that a
// stock replenishment converted into an order.  Dispatch happens outside
// the fulfillment transaction: a delivery failure must never roll back a
// confirmed reservation.
type WaitlistConfirmedEvent struct {
    OrderID     uint64 `json:"order_id"`
    UserID      uint64 `json:"user_id"`
    ProductName string `json:"product_name"`
    ItemName    string `json:"item_name"`
    Quantity    int64  `json:"quantity"`
    ConfirmedAt string `json:"confirmed_at"`
}
