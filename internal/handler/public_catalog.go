package handler

import (
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/repository"
    "github.com/sooye-park/groupbuy-reservation/internal/stock"
)

// CatalogHandler serves the public storefront reads.  Responses are
// cacheable; the response cache middleware in front of these routes keeps
// hot product pages off the database.
type CatalogHandler struct {
    Products *repository.ProductRepo
    Orders   *repository.OrderRepo
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(products *repository.ProductRepo, orders *repository.OrderRepo) *CatalogHandler {
    if products == nil || orders == nil {
        panic("nil repository passed to NewCatalogHandler")
    }
    return &CatalogHandler{Products: products, Orders: orders}
}

// ListProducts handles GET /v1/products.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
    products, err := h.Products.ListActive(c.Request().Context())
    if err != nil {
        log.Printf("list products failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list products"})
    }
    return c.JSON(http.StatusOK, echo.Map{"products": products})
}

type catalogItem struct {
    ID                   uint64     `json:"id"`
    Name                 string     `json:"name"`
    Price                int64      `json:"price"`
    StockDeductionAmount int64      `json:"stock_deduction_amount"`
    ExpirationAt         *time.Time `json:"expiration_at,omitempty"`
}

type catalogVariantGroup struct {
    ID            uint64        `json:"id"`
    GroupName     string        `json:"group_name"`
    StockUnitType string        `json:"stock_unit_type"`
    Unlimited     bool          `json:"unlimited"`
    Remaining     *int64        `json:"remaining,omitempty"`
    WaitlistCount int64         `json:"waitlist_count"`
    Items         []catalogItem `json:"items"`
}

type catalogRound struct {
    ID                   uint64                `json:"id"`
    RoundName            string                `json:"round_name"`
    Status               string                `json:"status"`
    PublishAt            time.Time             `json:"publish_at"`
    DeadlineAt           time.Time             `json:"deadline_at"`
    PickupAt             *time.Time            `json:"pickup_at,omitempty"`
    PickupDeadlineAt     *time.Time            `json:"pickup_deadline_at,omitempty"`
    IsPrepaymentRequired bool                  `json:"is_prepayment_required"`
    VariantGroups        []catalogVariantGroup `json:"variant_groups"`
}

// GetProduct handles GET /v1/products/:id.  Each variant group carries its
// live remaining quantity, derived on the fly from capacity minus the sum
// of active orders.  Nothing stores a running availability counter, so
// the figure can never drift.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
    }
    ctx := c.Request().Context()
    product, err := h.Products.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
        log.Printf("get product %d failed: %v", id, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load product"})
    }

    keys := make([]stock.Key, 0)
    for _, rd := range product.Rounds {
        for _, g := range rd.VariantGroups {
            keys = append(keys, stock.Key{ProductID: product.ID, RoundID: rd.ID, VariantGroupID: g.ID})
        }
    }
    committed := map[stock.Key]int64{}
    if len(keys) > 0 {
        committed, err = h.Orders.AggregateActive(ctx, keys)
        if err != nil {
            log.Printf("availability for product %d failed: %v", id, err)
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load product"})
        }
    }

    rounds := make([]catalogRound, 0, len(product.Rounds))
    for _, rd := range product.Rounds {
        groups := make([]catalogVariantGroup, 0, len(rd.VariantGroups))
        for _, g := range rd.VariantGroups {
            k := stock.Key{ProductID: product.ID, RoundID: rd.ID, VariantGroupID: g.ID}
            avail := stock.Compute(g.TotalPhysicalStock, committed[k])
            cg := catalogVariantGroup{
                ID:            g.ID,
                GroupName:     g.GroupName,
                StockUnitType: g.StockUnitType,
                Unlimited:     avail.Unlimited,
                WaitlistCount: g.WaitlistCount,
                Items:         make([]catalogItem, 0, len(g.Items)),
            }
            if !avail.Unlimited {
                remaining := avail.Clamped()
                cg.Remaining = &remaining
            }
            for _, it := range g.Items {
                cg.Items = append(cg.Items, catalogItem{
                    ID:                   it.ID,
                    Name:                 it.Name,
                    Price:                it.Price,
                    StockDeductionAmount: it.StockDeductionAmount,
                    ExpirationAt:         it.ExpirationAt,
                })
            }
            groups = append(groups, cg)
        }
        rounds = append(rounds, catalogRound{
            ID:                   rd.ID,
            RoundName:            rd.RoundName,
            Status:               rd.Status,
            PublishAt:            rd.PublishAt,
            DeadlineAt:           rd.DeadlineAt,
            PickupAt:             rd.PickupAt,
            PickupDeadlineAt:     rd.PickupDeadlineAt,
            IsPrepaymentRequired: rd.IsPrepaymentRequired,
            VariantGroups:        groups,
        })
    }

    return c.JSON(http.StatusOK, echo.Map{
        "id":           product.ID,
        "group_name":   product.GroupName,
        "description":  product.Description,
        "storage_type": product.StorageType,
        "created_at":   product.CreatedAt,
        "rounds":       rounds,
    })
}
