package repository

import (
    "context"
    "database/sql"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
)

// WaitlistRepo provides access to waitlist entries.  The queue is stored
// as plain rows ordered by (created_at, id); the auto-increment ID doubles
// as the deterministic tie-break for entries enqueued in the same instant.
// Entries are appended by the customer-facing join operation and only
// ever reduced or removed by the fulfillment transaction.
type WaitlistRepo struct {
    db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// AppendTx enqueues a new entry within the given transaction.  Every join
// is a fresh row; entries for the same user are never merged, which is
// what keeps the queue strictly first-come-first-served.  The generated
// ID is populated on the entry.
func (r *WaitlistRepo) AppendTx(ctx context.Context, tx *sql.Tx, e *model.WaitlistEntry) error {
    const q = `INSERT INTO waitlist_entries (round_id, variant_group_id, item_id, user_id, quantity)
               VALUES (?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, e.RoundID, e.VariantGroupID, e.ItemID, e.UserID, e.Quantity)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    return nil
}

// ListByRoundForUpdateTx returns every entry queued against the round in
// FIFO order, locking the rows for the duration of the transaction.  The
// fulfillment walk needs the whole round's waitlist so entries of other
// variant groups can be carried over unchanged.
func (r *WaitlistRepo) ListByRoundForUpdateTx(ctx context.Context, tx *sql.Tx, roundID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT id, round_id, variant_group_id, item_id, user_id, quantity, created_at
               FROM waitlist_entries WHERE round_id = ?
               ORDER BY created_at, id
               FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, roundID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    entries := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        var e model.WaitlistEntry
        if err := rows.Scan(&e.ID, &e.RoundID, &e.VariantGroupID, &e.ItemID, &e.UserID, &e.Quantity, &e.CreatedAt); err != nil {
            return nil, err
        }
        entries = append(entries, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}

// ReduceQuantityTx shrinks a partially fulfilled entry in place.  The row
// keeps its created_at, and with it its position in the queue.
func (r *WaitlistRepo) ReduceQuantityTx(ctx context.Context, tx *sql.Tx, entryID uint64, remainder int64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE waitlist_entries SET quantity = ? WHERE id = ?`, remainder, entryID)
    return err
}

// DeleteTx removes a fully consumed entry.
func (r *WaitlistRepo) DeleteTx(ctx context.Context, tx *sql.Tx, entryID uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, entryID)
    return err
}

// PendingQuantityTx returns the sum of queued quantity for one variant
// group.  Used to recompute the denormalized waitlist_count after a
// fulfillment pass mutates the queue.
func (r *WaitlistRepo) PendingQuantityTx(ctx context.Context, tx *sql.Tx, variantGroupID uint64) (int64, error) {
    var sum int64
    err := tx.QueryRowContext(ctx,
        `SELECT COALESCE(SUM(quantity), 0) FROM waitlist_entries WHERE variant_group_id = ?`,
        variantGroupID).Scan(&sum)
    return sum, err
}

// ListByUser returns the user's queued entries, oldest first, for the
// "my waitlist" view.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT id, round_id, variant_group_id, item_id, user_id, quantity, created_at
               FROM waitlist_entries WHERE user_id = ? ORDER BY created_at, id`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    entries := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        var e model.WaitlistEntry
        if err := rows.Scan(&e.ID, &e.RoundID, &e.VariantGroupID, &e.ItemID, &e.UserID, &e.Quantity, &e.CreatedAt); err != nil {
            return nil, err
        }
        entries = append(entries, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}
