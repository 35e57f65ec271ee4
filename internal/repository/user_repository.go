package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
    "github.com/sooye-park/groupbuy-reservation/internal/utils"
)

// UserRepo provides access to the user profile store.  The admission
// transaction reads profiles for loyalty-tier gating; the fulfillment
// transaction batch-reads them for contact info and order stats.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, email, password_hash, name, phone, role, loyalty_tier,
    total_orders, pickup_count, no_show_count, is_active, created_at, updated_at`

func scanUser(scan func(dest ...interface{}) error) (model.User, error) {
    var u model.User
    err := scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.LoyaltyTier,
        &u.TotalOrders, &u.PickupCount, &u.NoShowCount, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// Create inserts a user and returns its ID.  New accounts start on the
// NORMAL loyalty tier; roles other than CUSTOMER are provisioned out of
// band.
func (r *UserRepo) Create(ctx context.Context, email, password, name, phone, role string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, password_hash, name, phone, role, loyalty_tier) VALUES (?,?,?,?,?,?)",
        email, hash, name, phone, role, model.TierNormal)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    return scanUser(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email).Scan)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    return scanUser(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id).Scan)
}

// GetByIDTx fetches a user inside a transaction.  Returns ErrUserNotFound
// when absent.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
    u, err := scanUser(tx.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id).Scan)
    if err == sql.ErrNoRows {
        return u, ErrUserNotFound
    }
    return u, err
}

// GetByIDsTx batch-loads users inside a transaction, keyed by id.  Absent
// IDs are simply missing from the map; the fulfillment walk treats those
// entries as per-entry failures rather than aborting.
func (r *UserRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]model.User, error) {
    users := make(map[uint64]model.User, len(ids))
    if len(ids) == 0 {
        return users, nil
    }
    placeholders := make([]string, 0, len(ids))
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := "SELECT " + userColumns + " FROM users WHERE id IN (" + strings.Join(placeholders, ",") + ")"
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        u, err := scanUser(rows.Scan)
        if err != nil {
            return nil, err
        }
        users[u.ID] = u
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return users, nil
}

// IncrementOrderStatsTx bumps a user's lifetime order count inside a
// transaction.  Called once per order created on the user's behalf,
// including waitlist conversions.
func (r *UserRepo) IncrementOrderStatsTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
    _, err := tx.ExecContext(ctx,
        "UPDATE users SET total_orders = total_orders + 1 WHERE id = ?", userID)
    return err
}
