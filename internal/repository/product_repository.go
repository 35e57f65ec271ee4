package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
)

// ProductRepo provides access to the catalog hierarchy: products, their
// sales rounds, variant groups and purchasable items.  Capacity and
// waitlist columns on variant groups are the only product fields this
// service ever writes; everything else is managed by admin tooling.
type ProductRepo struct {
    db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span multiple repositories.
func (r *ProductRepo) DB() *sql.DB { return r.db }

// GetByID loads one product together with its full sale history (rounds,
// variant groups and items).  Returns ErrProductNotFound when no such
// product exists.  Archived products are still returned so historical
// orders keep resolving; callers filter if needed.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
    const q = `SELECT id, group_name, description, storage_type, is_archived, created_at
               FROM products WHERE id = ?`
    var p model.Product
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &p.ID, &p.GroupName, &p.Description, &p.StorageType, &p.IsArchived, &p.CreatedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrProductNotFound
        }
        return nil, err
    }
    rounds, err := r.loadRounds(ctx, p.ID)
    if err != nil {
        return nil, err
    }
    p.Rounds = rounds
    return &p, nil
}

// loadRounds fetches a product's rounds with their variant groups and
// items, oldest round first.
func (r *ProductRepo) loadRounds(ctx context.Context, productID uint64) ([]model.SalesRound, error) {
    const q = `SELECT id, product_id, round_name, status, publish_at, deadline_at,
                      pickup_at, pickup_deadline_at, is_prepayment_required, created_at
               FROM sales_rounds WHERE product_id = ? ORDER BY created_at, id`
    rows, err := r.db.QueryContext(ctx, q, productID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    rounds := make([]model.SalesRound, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var rd model.SalesRound
        var pickupAt, pickupDeadlineAt sql.NullTime
        if err := rows.Scan(
            &rd.ID, &rd.ProductID, &rd.RoundName, &rd.Status, &rd.PublishAt, &rd.DeadlineAt,
            &pickupAt, &pickupDeadlineAt, &rd.IsPrepaymentRequired, &rd.CreatedAt,
        ); err != nil {
            return nil, err
        }
        if pickupAt.Valid {
            t := pickupAt.Time
            rd.PickupAt = &t
        }
        if pickupDeadlineAt.Valid {
            t := pickupDeadlineAt.Time
            rd.PickupDeadlineAt = &t
        }
        index[rd.ID] = len(rounds)
        rounds = append(rounds, rd)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(rounds) == 0 {
        return rounds, nil
    }

    // Fetch variant groups for all rounds in one query.
    ids := make([]interface{}, 0, len(rounds))
    placeholders := make([]string, 0, len(rounds))
    for _, rd := range rounds {
        ids = append(ids, rd.ID)
        placeholders = append(placeholders, "?")
    }
    in := strings.Join(placeholders, ",")
    gq := `SELECT id, round_id, group_name, total_physical_stock, stock_unit_type, waitlist_count, created_at
           FROM variant_groups WHERE round_id IN (` + in + `) ORDER BY round_id, id`
    grows, err := r.db.QueryContext(ctx, gq, ids...)
    if err != nil {
        return nil, err
    }
    defer grows.Close()
    for grows.Next() {
        var g model.VariantGroup
        var total sql.NullInt64
        if err := grows.Scan(&g.ID, &g.RoundID, &g.GroupName, &total, &g.StockUnitType, &g.WaitlistCount, &g.CreatedAt); err != nil {
            return nil, err
        }
        if total.Valid {
            v := total.Int64
            g.TotalPhysicalStock = &v
        }
        ri := index[g.RoundID]
        rounds[ri].VariantGroups = append(rounds[ri].VariantGroups, g)
    }
    if err := grows.Err(); err != nil {
        return nil, err
    }
    // Index after all appends so the pointers cannot be invalidated by
    // slice growth.
    groupIndex := make(map[uint64]*model.VariantGroup)
    for ri := range rounds {
        for gi := range rounds[ri].VariantGroups {
            g := &rounds[ri].VariantGroups[gi]
            groupIndex[g.ID] = g
        }
    }
    if len(groupIndex) == 0 {
        return rounds, nil
    }

    gids := make([]interface{}, 0, len(groupIndex))
    gph := make([]string, 0, len(groupIndex))
    for id := range groupIndex {
        gids = append(gids, id)
        gph = append(gph, "?")
    }
    iq := `SELECT id, variant_group_id, name, price, stock_deduction_amount, expiration_at, created_at
           FROM product_items WHERE variant_group_id IN (` + strings.Join(gph, ",") + `) ORDER BY variant_group_id, id`
    irows, err := r.db.QueryContext(ctx, iq, gids...)
    if err != nil {
        return nil, err
    }
    defer irows.Close()
    for irows.Next() {
        var it model.ProductItem
        var exp sql.NullTime
        if err := irows.Scan(&it.ID, &it.VariantGroupID, &it.Name, &it.Price, &it.StockDeductionAmount, &exp, &it.CreatedAt); err != nil {
            return nil, err
        }
        if exp.Valid {
            t := exp.Time
            it.ExpirationAt = &t
        }
        if g, ok := groupIndex[it.VariantGroupID]; ok {
            g.Items = append(g.Items, it)
        }
    }
    if err := irows.Err(); err != nil {
        return nil, err
    }
    return rounds, nil
}

// ProductSummary is the storefront listing row: the product with a
// one-line summary of its most recent round.
type ProductSummary struct {
    ID          uint64     `json:"id"`
    GroupName   string     `json:"group_name"`
    Description string     `json:"description"`
    StorageType string     `json:"storage_type"`
    RoundID     *uint64    `json:"round_id,omitempty"`
    RoundName   *string    `json:"round_name,omitempty"`
    RoundStatus *string    `json:"round_status,omitempty"`
    PickupAt    *time.Time `json:"pickup_at,omitempty"`
}

// ListActive returns non-archived products with their latest round, newest
// product first.  Used by the public catalog endpoints.
func (r *ProductRepo) ListActive(ctx context.Context) ([]ProductSummary, error) {
    const q = `SELECT p.id, p.group_name, p.description, p.storage_type,
                      sr.id, sr.round_name, sr.status, sr.pickup_at
               FROM products p
               LEFT JOIN sales_rounds sr ON sr.id = (
                   SELECT id FROM sales_rounds
                   WHERE product_id = p.id ORDER BY created_at DESC, id DESC LIMIT 1
               )
               WHERE p.is_archived = 0
               ORDER BY p.created_at DESC, p.id DESC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]ProductSummary, 0)
    for rows.Next() {
        var s ProductSummary
        var rid sql.NullInt64
        var rname, rstatus sql.NullString
        var pickup sql.NullTime
        if err := rows.Scan(&s.ID, &s.GroupName, &s.Description, &s.StorageType, &rid, &rname, &rstatus, &pickup); err != nil {
            return nil, err
        }
        if rid.Valid {
            v := uint64(rid.Int64)
            s.RoundID = &v
        }
        if rname.Valid {
            v := rname.String
            s.RoundName = &v
        }
        if rstatus.Valid {
            v := rstatus.String
            s.RoundStatus = &v
        }
        if pickup.Valid {
            t := pickup.Time
            s.PickupAt = &t
        }
        out = append(out, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// RoundRef resolves (productID, roundID) within a transaction and returns
// the round's pickup fields needed when writing an order.  Returns
// ErrProductNotFound / ErrRoundNotFound when the pair does not resolve.
type RoundRef struct {
    RoundID              uint64
    ProductID            uint64
    ProductName          string
    RoundName            string
    PickupAt             *time.Time
    PickupDeadlineAt     *time.Time
    IsPrepaymentRequired bool
}

// GetRoundTx loads a round reference, verifying it belongs to the product.
func (r *ProductRepo) GetRoundTx(ctx context.Context, tx *sql.Tx, productID, roundID uint64) (*RoundRef, error) {
    const q = `SELECT sr.id, sr.product_id, p.group_name, sr.round_name,
                      sr.pickup_at, sr.pickup_deadline_at, sr.is_prepayment_required
               FROM sales_rounds sr
               JOIN products p ON p.id = sr.product_id
               WHERE sr.id = ? AND sr.product_id = ?`
    var ref RoundRef
    var pickupAt, pickupDeadlineAt sql.NullTime
    err := tx.QueryRowContext(ctx, q, roundID, productID).Scan(
        &ref.RoundID, &ref.ProductID, &ref.ProductName, &ref.RoundName,
        &pickupAt, &pickupDeadlineAt, &ref.IsPrepaymentRequired,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            // Distinguish a missing product from a missing round for error reporting.
            var n int
            if e2 := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE id = ?`, productID).Scan(&n); e2 == nil && n == 0 {
                return nil, ErrProductNotFound
            }
            return nil, ErrRoundNotFound
        }
        return nil, err
    }
    return &ref, nil
}

// GetVariantGroupForUpdateTx loads a variant group row with a row lock
// (SELECT ... FOR UPDATE).  Locking the group row before aggregating
// committed quantity is what serializes concurrent admissions against the
// same scarce group: the second transaction blocks here until the first
// commits, then sees its order in the aggregate.  Returns
// ErrVariantGroupNotFound when the group does not belong to the round.
func (r *ProductRepo) GetVariantGroupForUpdateTx(ctx context.Context, tx *sql.Tx, roundID, variantGroupID uint64) (*model.VariantGroup, error) {
    const q = `SELECT id, round_id, group_name, total_physical_stock, stock_unit_type, waitlist_count, created_at
               FROM variant_groups WHERE id = ? AND round_id = ? FOR UPDATE`
    var g model.VariantGroup
    var total sql.NullInt64
    err := tx.QueryRowContext(ctx, q, variantGroupID, roundID).Scan(
        &g.ID, &g.RoundID, &g.GroupName, &total, &g.StockUnitType, &g.WaitlistCount, &g.CreatedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrVariantGroupNotFound
        }
        return nil, err
    }
    if total.Valid {
        v := total.Int64
        g.TotalPhysicalStock = &v
    }
    return &g, nil
}

// GetItemTx loads one purchasable item of a variant group within a
// transaction.  Returns ErrItemNotFound when absent.
func (r *ProductRepo) GetItemTx(ctx context.Context, tx *sql.Tx, variantGroupID, itemID uint64) (*model.ProductItem, error) {
    const q = `SELECT id, variant_group_id, name, price, stock_deduction_amount, expiration_at, created_at
               FROM product_items WHERE id = ? AND variant_group_id = ?`
    var it model.ProductItem
    var exp sql.NullTime
    err := tx.QueryRowContext(ctx, q, itemID, variantGroupID).Scan(
        &it.ID, &it.VariantGroupID, &it.Name, &it.Price, &it.StockDeductionAmount, &exp, &it.CreatedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrItemNotFound
        }
        return nil, err
    }
    if exp.Valid {
        t := exp.Time
        it.ExpirationAt = &t
    }
    return &it, nil
}

// AddStockTx increases a variant group's physical capacity by delta.  A
// group with unlimited capacity (NULL column) is left untouched; the
// statement's WHERE clause makes that a no-op rather than an error.
func (r *ProductRepo) AddStockTx(ctx context.Context, tx *sql.Tx, variantGroupID uint64, delta int64) error {
    const q = `UPDATE variant_groups
               SET total_physical_stock = total_physical_stock + ?
               WHERE id = ? AND total_physical_stock IS NOT NULL AND total_physical_stock <> ?`
    _, err := tx.ExecContext(ctx, q, delta, variantGroupID, model.UnlimitedStock)
    return err
}

// SetWaitlistCountTx overwrites the denormalized pending-quantity counter
// on a variant group.
func (r *ProductRepo) SetWaitlistCountTx(ctx context.Context, tx *sql.Tx, variantGroupID uint64, count int64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE variant_groups SET waitlist_count = ? WHERE id = ?`, count, variantGroupID)
    return err
}

// NewRound describes one round in a product creation request.
type NewRound struct {
    RoundName            string
    Status               string
    PublishAt            time.Time
    DeadlineAt           time.Time
    PickupAt             *time.Time
    PickupDeadlineAt     *time.Time
    IsPrepaymentRequired bool
    VariantGroups        []NewVariantGroup
}

// NewVariantGroup describes one variant group in a product creation request.
type NewVariantGroup struct {
    GroupName          string
    TotalPhysicalStock *int64 // nil = unlimited
    StockUnitType      string
    Items              []NewItem
}

// NewItem describes one purchasable item in a product creation request.
type NewItem struct {
    Name                 string
    Price                int64
    StockDeductionAmount int64
    ExpirationAt         *time.Time
}

// Create inserts a product with its rounds, variant groups and items in a
// single transaction and returns the new product ID.
func (r *ProductRepo) Create(ctx context.Context, groupName, description, storageType string, rounds []NewRound) (uint64, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := tx.ExecContext(ctx,
        `INSERT INTO products (group_name, description, storage_type) VALUES (?, ?, ?)`,
        groupName, description, storageType)
    if err != nil {
        return 0, err
    }
    pid, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }

    for _, rd := range rounds {
        rres, err := tx.ExecContext(ctx,
            `INSERT INTO sales_rounds
             (product_id, round_name, status, publish_at, deadline_at, pickup_at, pickup_deadline_at, is_prepayment_required)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
            pid, rd.RoundName, rd.Status, rd.PublishAt, rd.DeadlineAt,
            nullTime(rd.PickupAt), nullTime(rd.PickupDeadlineAt), rd.IsPrepaymentRequired)
        if err != nil {
            return 0, err
        }
        rid, err := rres.LastInsertId()
        if err != nil {
            return 0, err
        }
        for _, g := range rd.VariantGroups {
            gres, err := tx.ExecContext(ctx,
                `INSERT INTO variant_groups (round_id, group_name, total_physical_stock, stock_unit_type)
                 VALUES (?, ?, ?, ?)`,
                rid, g.GroupName, nullInt(g.TotalPhysicalStock), g.StockUnitType)
            if err != nil {
                return 0, err
            }
            gid, err := gres.LastInsertId()
            if err != nil {
                return 0, err
            }
            for _, it := range g.Items {
                if _, err := tx.ExecContext(ctx,
                    `INSERT INTO product_items (variant_group_id, name, price, stock_deduction_amount, expiration_at)
                     VALUES (?, ?, ?, ?, ?)`,
                    gid, it.Name, it.Price, it.StockDeductionAmount, nullTime(it.ExpirationAt)); err != nil {
                    return 0, err
                }
            }
        }
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return uint64(pid), nil
}

// Archive hides a product from the storefront without deleting it.
func (r *ProductRepo) Archive(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `UPDATE products SET is_archived = 1 WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrProductNotFound
    }
    return nil
}

func nullTime(t *time.Time) interface{} {
    if t == nil {
        return nil
    }
    return *t
}

func nullInt(v *int64) interface{} {
    if v == nil {
        return nil
    }
    return *v
}
