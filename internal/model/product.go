package model

import "time"

// Round status values as stored in the `sales_rounds.status` column.
const (
    RoundStatusDraft     = "DRAFT"     // staff is still editing the round
    RoundStatusScheduled = "SCHEDULED" // publish_at lies in the future
    RoundStatusSelling   = "SELLING"   // round is open for reservations
    RoundStatusSoldOut   = "SOLD_OUT"  // every variant group is exhausted
    RoundStatusEnded     = "ENDED"     // deadline passed; round is historical
)

// UnlimitedStock is the legacy sentinel some import paths still write into
// `total_physical_stock`.  A NULL column is the canonical representation of
// unlimited capacity; both forms must be honored when reading.
const UnlimitedStock = -1

// Product represents a sellable catalog entry as stored in the `products`
// table.  A product carries its full sale history as an ordered list of
// sales rounds.  Products are archived by staff, never hard-deleted, so
// historical orders keep resolving.
//
// Fields:
//  ID          – primary key identifier.
//  GroupName   – display name of the product.
//  Description – long-form description shown on the product page.
//  StorageType – storage category (ROOM, COLD, FROZEN).
//  IsArchived  – whether the product is hidden from the storefront.
//  CreatedAt   – creation timestamp.
//  Rounds      – sale history, oldest first; assembled by the repository.
type Product struct {
    ID          uint64       // products.id
    GroupName   string       // products.group_name
    Description string       // products.description
    StorageType string       // products.storage_type
    IsArchived  bool         // products.is_archived
    CreatedAt   time.Time    // products.created_at
    Rounds      []SalesRound // sales_rounds rows belonging to this product
}

// SalesRound is one time-boxed selling event for a product.  A round is
// immutable once past; while active it is mutated only by the staff stock
// and waitlist operations.
//
// Fields:
//  ID                   – primary key identifier.
//  ProductID            – owning product.
//  RoundName            – display name (e.g. "2nd round").
//  Status               – one of the RoundStatus* constants.
//  PublishAt            – when the round becomes visible.
//  DeadlineAt           – when ordering closes.
//  PickupAt             – pickup date for the round (nullable in drafts).
//  PickupDeadlineAt     – last day to pick up (nullable).
//  IsPrepaymentRequired – whether orders in this round must be prepaid.
//  CreatedAt            – creation timestamp.
//  VariantGroups        – purchasable option bundles within the round.
type SalesRound struct {
    ID                   uint64         // sales_rounds.id
    ProductID            uint64         // sales_rounds.product_id
    RoundName            string         // sales_rounds.round_name
    Status               string         // sales_rounds.status
    PublishAt            time.Time      // sales_rounds.publish_at
    DeadlineAt           time.Time      // sales_rounds.deadline_at
    PickupAt             *time.Time     // sales_rounds.pickup_at (nullable)
    PickupDeadlineAt     *time.Time     // sales_rounds.pickup_deadline_at (nullable)
    IsPrepaymentRequired bool           // sales_rounds.is_prepayment_required
    CreatedAt            time.Time      // sales_rounds.created_at
    VariantGroups        []VariantGroup // variant_groups rows for this round
}

// VariantGroup is a purchasable option bundle within a round, carrying its
// own physical stock capacity and the denormalized count of pending
// waitlist quantity.  TotalPhysicalStock is nil when capacity is unlimited.
//
// Invariant: when not unlimited, TotalPhysicalStock is never reduced below
// the sum of quantities committed in active orders for this group.
type VariantGroup struct {
    ID                 uint64        // variant_groups.id
    RoundID            uint64        // variant_groups.round_id
    GroupName          string        // variant_groups.group_name
    TotalPhysicalStock *int64        // variant_groups.total_physical_stock (NULL = unlimited)
    StockUnitType      string        // variant_groups.stock_unit_type (e.g. "box", "kg")
    WaitlistCount      int64         // variant_groups.waitlist_count (denormalized)
    CreatedAt          time.Time     // variant_groups.created_at
    Items              []ProductItem // product_items rows for this group
}

// Unlimited reports whether the group's capacity is unbounded.  Both the
// NULL column and the legacy -1 sentinel mean unlimited.
func (g VariantGroup) Unlimited() bool {
    return g.TotalPhysicalStock == nil || *g.TotalPhysicalStock == UnlimitedStock
}

// ProductItem is a single purchasable unit inside a variant group.  The
// stock deduction amount is the packaging multiplier: purchasable
// quantities must be integer multiples of it.
type ProductItem struct {
    ID                   uint64     // product_items.id
    VariantGroupID       uint64     // product_items.variant_group_id
    Name                 string     // product_items.name
    Price                int64      // product_items.price (unit price)
    StockDeductionAmount int64      // product_items.stock_deduction_amount (>= 1)
    ExpirationAt         *time.Time // product_items.expiration_at (nullable)
    CreatedAt            time.Time  // product_items.created_at
}

// FindRound returns the round with the given ID, or nil when the product
// has no such round.
func (p *Product) FindRound(roundID uint64) *SalesRound {
    for i := range p.Rounds {
        if p.Rounds[i].ID == roundID {
            return &p.Rounds[i]
        }
    }
    return nil
}

// FindVariantGroup returns the variant group with the given ID, or nil.
func (r *SalesRound) FindVariantGroup(variantGroupID uint64) *VariantGroup {
    for i := range r.VariantGroups {
        if r.VariantGroups[i].ID == variantGroupID {
            return &r.VariantGroups[i]
        }
    }
    return nil
}

// FindItem returns the item with the given ID, or nil.
func (g *VariantGroup) FindItem(itemID uint64) *ProductItem {
    for i := range g.Items {
        if g.Items[i].ID == itemID {
            return &g.Items[i]
        }
    }
    return nil
}
