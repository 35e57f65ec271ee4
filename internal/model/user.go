package model

import "time"

// Role values stored in `users.role`.  Customers shop; admins and the
// master account manage stock and waitlists.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = "ADMIN"
    RoleMaster   = "MASTER"
)

// Loyalty tiers stored in `users.loyalty_tier`.  The tier is derived from
// pickup behavior by out-of-scope admin tooling; this core only reads it.
// TierRestricted blocks participation in group buys entirely.
const (
    TierExcellent  = "EXCELLENT"
    TierGood       = "GOOD"
    TierNormal     = "NORMAL"
    TierWarning    = "WARNING"
    TierRestricted = "RESTRICTED"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  Handlers
// may define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name used on orders and notifications.
//  Phone        – contact number; orders persist only its last 4 digits.
//  Role         – one of the Role* constants.
//  LoyaltyTier  – one of the Tier* constants.
//  TotalOrders  – lifetime order count (bumped on waitlist conversion too).
//  PickupCount  – orders actually picked up.
//  NoShowCount  – orders missed past the pickup deadline.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Name         string    // users.name
    Phone        string    // users.phone
    Role         string    // users.role
    LoyaltyTier  string    // users.loyalty_tier
    TotalOrders  int64     // users.total_orders
    PickupCount  int64     // users.pickup_count
    NoShowCount  int64     // users.no_show_count
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// LastFourDigits truncates a phone number to the suffix stored on
// orders.  Short numbers are returned unchanged.
func LastFourDigits(phone string) string {
    if len(phone) <= 4 {
        return phone
    }
    return phone[len(phone)-4:]
}

// PhoneLast4 returns the truncated phone suffix stored on orders.
func (u User) PhoneLast4() string { return LastFourDigits(u.Phone) }

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry and
// revocation.  The plain token is not stored; only its SHA-256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
