package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
    "github.com/sooye-park/groupbuy-reservation/internal/stock"
)

// OrderRepo provides access to orders and their items, the reservation
// record store that is the source of truth for committed demand.  Orders
// are inserted by the admission and fulfillment transactions and only
// ever change status afterwards; nothing here deletes rows.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span multiple repositories.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// AggregateActiveTx recomputes committed quantity per variant-group key by
// scanning active order items inside the given transaction.  When keys is
// non-empty the scan is narrowed to those triples.  Recomputing on every
// admission instead of maintaining a running counter is deliberate: the
// aggregate is always correct and can never drift.
func (r *OrderRepo) AggregateActiveTx(ctx context.Context, tx *sql.Tx, keys []stock.Key) (map[stock.Key]int64, error) {
    return aggregateActive(ctx, tx, keys)
}

// AggregateActive is the non-transactional variant used by the read-only
// cart checker.
func (r *OrderRepo) AggregateActive(ctx context.Context, keys []stock.Key) (map[stock.Key]int64, error) {
    return aggregateActive(ctx, r.db, keys)
}

// queryer covers *sql.DB and *sql.Tx.
type queryer interface {
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func aggregateActive(ctx context.Context, q queryer, keys []stock.Key) (map[stock.Key]int64, error) {
    query := `SELECT oi.product_id, oi.round_id, oi.variant_group_id, COALESCE(SUM(oi.quantity), 0)
              FROM order_items oi
              JOIN orders o ON o.id = oi.order_id
              WHERE o.status IN ('RESERVED', 'PREPAID')`
    args := make([]interface{}, 0, len(keys)*3)
    if len(keys) > 0 {
        conds := make([]string, 0, len(keys))
        for _, k := range keys {
            conds = append(conds, `(oi.product_id = ? AND oi.round_id = ? AND oi.variant_group_id = ?)`)
            args = append(args, k.ProductID, k.RoundID, k.VariantGroupID)
        }
        query += ` AND (` + strings.Join(conds, " OR ") + `)`
    }
    query += ` GROUP BY oi.product_id, oi.round_id, oi.variant_group_id`

    rows, err := q.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    committed := make(map[stock.Key]int64)
    for rows.Next() {
        var k stock.Key
        var sum int64
        if err := rows.Scan(&k.ProductID, &k.RoundID, &k.VariantGroupID, &sum); err != nil {
            return nil, err
        }
        committed[k] = sum
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return committed, nil
}

// CreateTx inserts a new order and its items within the scope of an
// existing transaction.  It populates the generated ID on the provided
// order.  The caller must commit or rollback the transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
    const q = `INSERT INTO orders
               (order_number, user_id, status, total_price, customer_name, customer_phone_last4,
                pickup_at, pickup_deadline_at, was_prepayment_required, notes)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        o.OrderNumber, o.UserID, o.Status, o.TotalPrice, o.CustomerName, o.CustomerPhoneLast4,
        o.PickupAt, nullTime(o.PickupDeadlineAt), o.WasPrepaymentRequired, o.Notes)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)

    if len(o.Items) == 0 {
        return nil
    }
    query := `INSERT INTO order_items
              (order_id, product_id, round_id, variant_group_id, item_id,
               product_name, item_name, quantity, unit_price, stock_deduction_amount) VALUES `
    args := make([]interface{}, 0, len(o.Items)*10)
    for i := range o.Items {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
        it := &o.Items[i]
        it.OrderID = o.ID
        args = append(args,
            o.ID, it.ProductID, it.RoundID, it.VariantGroupID, it.ItemID,
            it.ProductName, it.ItemName, it.Quantity, it.UnitPrice, it.StockDeductionAmount)
    }
    _, err = tx.ExecContext(ctx, query, args...)
    return err
}

// OrderDetail is an order with its items, returned to customers and staff.
type OrderDetail struct {
    ID                    uint64     `json:"id"`
    OrderNumber           string     `json:"order_number"`
    UserID                uint64     `json:"user_id"`
    Status                string     `json:"status"`
    TotalPrice            int64      `json:"total_price"`
    CustomerName          string     `json:"customer_name"`
    CustomerPhoneLast4    string     `json:"customer_phone_last4"`
    PickupAt              time.Time  `json:"pickup_at"`
    PickupDeadlineAt      *time.Time `json:"pickup_deadline_at,omitempty"`
    WasPrepaymentRequired bool       `json:"was_prepayment_required"`
    Notes                 string     `json:"notes,omitempty"`
    CreatedAt             time.Time  `json:"created_at"`
    Items                 []OrderItemDetail `json:"items"`
}

// OrderItemDetail is one line of an order as shown to callers.
type OrderItemDetail struct {
    ProductID      uint64 `json:"product_id"`
    RoundID        uint64 `json:"round_id"`
    VariantGroupID uint64 `json:"variant_group_id"`
    ItemID         uint64 `json:"item_id"`
    ProductName    string `json:"product_name"`
    ItemName       string `json:"item_name"`
    Quantity       int64  `json:"quantity"`
    UnitPrice      int64  `json:"unit_price"`
}

const orderSelectColumns = `o.id, o.order_number, o.user_id, o.status, o.total_price,
    o.customer_name, o.customer_phone_last4, o.pickup_at, o.pickup_deadline_at,
    o.was_prepayment_required, o.notes, o.created_at`

func scanOrderDetail(scan func(dest ...interface{}) error) (OrderDetail, error) {
    var d OrderDetail
    var deadline sql.NullTime
    var notes sql.NullString
    err := scan(&d.ID, &d.OrderNumber, &d.UserID, &d.Status, &d.TotalPrice,
        &d.CustomerName, &d.CustomerPhoneLast4, &d.PickupAt, &deadline,
        &d.WasPrepaymentRequired, &notes, &d.CreatedAt)
    if err != nil {
        return d, err
    }
    if deadline.Valid {
        t := deadline.Time
        d.PickupDeadlineAt = &t
    }
    if notes.Valid {
        d.Notes = notes.String
    }
    d.Items = []OrderItemDetail{}
    return d, nil
}

// attachItems populates Items for all orders in details using one query.
func (r *OrderRepo) attachItems(ctx context.Context, details []OrderDetail) ([]OrderDetail, error) {
    if len(details) == 0 {
        return details, nil
    }
    index := make(map[uint64]int, len(details))
    ids := make([]interface{}, 0, len(details))
    placeholders := make([]string, 0, len(details))
    for i, d := range details {
        index[d.ID] = i
        ids = append(ids, d.ID)
        placeholders = append(placeholders, "?")
    }
    q := `SELECT order_id, product_id, round_id, variant_group_id, item_id,
                 product_name, item_name, quantity, unit_price
          FROM order_items WHERE order_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY order_id, id`
    rows, err := r.db.QueryContext(ctx, q, ids...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var oid uint64
        var it OrderItemDetail
        if err := rows.Scan(&oid, &it.ProductID, &it.RoundID, &it.VariantGroupID, &it.ItemID,
            &it.ProductName, &it.ItemName, &it.Quantity, &it.UnitPrice); err != nil {
            return nil, err
        }
        if i, ok := index[oid]; ok {
            details[i].Items = append(details[i].Items, it)
        }
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}

// ListByUser returns all orders of the given user, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
    q := `SELECT ` + orderSelectColumns + ` FROM orders o WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]OrderDetail, 0)
    for rows.Next() {
        d, err := scanOrderDetail(rows.Scan)
        if err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return r.attachItems(ctx, details)
}

// GetByIDForUser returns a single order owned by the given user.  Returns
// ErrOrderNotFound when no such order exists and ErrForbidden when the
// order belongs to someone else.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID, userID uint64) (*OrderDetail, error) {
    q := `SELECT ` + orderSelectColumns + ` FROM orders o WHERE o.id = ?`
    d, err := scanOrderDetail(r.db.QueryRowContext(ctx, q, orderID).Scan)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrOrderNotFound
        }
        return nil, err
    }
    if d.UserID != userID {
        return nil, ErrForbidden
    }
    details, err := r.attachItems(ctx, []OrderDetail{d})
    if err != nil {
        return nil, err
    }
    return &details[0], nil
}

// ListByRound returns all orders containing at least one item of the
// given round, newest first.  Staff-only callers.
func (r *OrderRepo) ListByRound(ctx context.Context, roundID uint64) ([]OrderDetail, error) {
    q := `SELECT DISTINCT ` + orderSelectColumns + `
          FROM orders o
          JOIN order_items oi ON oi.order_id = o.id
          WHERE oi.round_id = ?
          ORDER BY o.created_at DESC, o.id DESC`
    rows, err := r.db.QueryContext(ctx, q, roundID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]OrderDetail, 0)
    for rows.Next() {
        d, err := scanOrderDetail(rows.Scan)
        if err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return r.attachItems(ctx, details)
}

// CancelForUser transitions an order to CANCELED on behalf of its owner.
// Cancellation is a status change, never a delete, so ledger history stays
// consistent; the freed capacity becomes visible to the next admission
// because canceled orders drop out of the active aggregate.  Returns
// ErrOrderNotFound, ErrForbidden, or ErrConflict when the order is not in
// an active status or its pickup day has passed.
func (r *OrderRepo) CancelForUser(ctx context.Context, orderID, userID uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const q = `SELECT user_id, status, pickup_at FROM orders WHERE id = ? FOR UPDATE`
    var ownerID uint64
    var status string
    var pickupAt time.Time
    if err := tx.QueryRowContext(ctx, q, orderID).Scan(&ownerID, &status, &pickupAt); err != nil {
        if err == sql.ErrNoRows {
            return ErrOrderNotFound
        }
        return err
    }
    if ownerID != userID {
        return ErrForbidden
    }
    if !model.IsActiveOrderStatus(status) {
        return ErrConflict
    }
    if !pickupAt.After(time.Now().UTC()) {
        return ErrConflict
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ?, canceled_at = NOW() WHERE id = ?`,
        model.OrderStatusCanceled, orderID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
