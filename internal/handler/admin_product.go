package handler

import (
    "errors"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
    "github.com/sooye-park/groupbuy-reservation/internal/repository"
)

// AdminProductHandler covers staff catalog management: creating products
// with their rounds, archiving them, and reviewing the orders of a round.
type AdminProductHandler struct {
    Products *repository.ProductRepo
    Orders   *repository.OrderRepo
}

// NewAdminProductHandler constructs an AdminProductHandler.
func NewAdminProductHandler(products *repository.ProductRepo, orders *repository.OrderRepo) *AdminProductHandler {
    if products == nil || orders == nil {
        panic("nil repository passed to NewAdminProductHandler")
    }
    return &AdminProductHandler{Products: products, Orders: orders}
}

type newItemReq struct {
    Name                 string     `json:"name"`
    Price                int64      `json:"price"`
    StockDeductionAmount int64      `json:"stock_deduction_amount"`
    ExpirationAt         *time.Time `json:"expiration_at"`
}

type newVariantGroupReq struct {
    GroupName          string       `json:"group_name"`
    TotalPhysicalStock *int64       `json:"total_physical_stock"`
    StockUnitType      string       `json:"stock_unit_type"`
    Items              []newItemReq `json:"items"`
}

type newRoundReq struct {
    RoundName            string               `json:"round_name"`
    Status               string               `json:"status"`
    PublishAt            time.Time            `json:"publish_at"`
    DeadlineAt           time.Time            `json:"deadline_at"`
    PickupAt             *time.Time           `json:"pickup_at"`
    PickupDeadlineAt     *time.Time           `json:"pickup_deadline_at"`
    IsPrepaymentRequired bool                 `json:"is_prepayment_required"`
    VariantGroups        []newVariantGroupReq `json:"variant_groups"`
}

type createProductReq struct {
    GroupName   string        `json:"group_name"`
    Description string        `json:"description"`
    StorageType string        `json:"storage_type"`
    Rounds      []newRoundReq `json:"rounds"`
}

var validRoundStatuses = map[string]bool{
    model.RoundStatusDraft:     true,
    model.RoundStatusScheduled: true,
    model.RoundStatusSelling:   true,
    model.RoundStatusSoldOut:   true,
    model.RoundStatusEnded:     true,
}

// CreateProduct handles POST /v1/admin/products.  The whole catalog tree
// (product, rounds, variant groups, items) is inserted atomically.
func (h *AdminProductHandler) CreateProduct(c echo.Context) error {
    var req createProductReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if strings.TrimSpace(req.GroupName) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product name is required"})
    }
    if len(req.Rounds) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one sales round is required"})
    }

    rounds := make([]repository.NewRound, 0, len(req.Rounds))
    for _, rd := range req.Rounds {
        status := rd.Status
        if status == "" {
            status = model.RoundStatusDraft
        }
        if !validRoundStatuses[status] {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid round status"})
        }
        if len(rd.VariantGroups) == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "round must have at least one variant group"})
        }
        groups := make([]repository.NewVariantGroup, 0, len(rd.VariantGroups))
        for _, g := range rd.VariantGroups {
            if g.TotalPhysicalStock != nil && *g.TotalPhysicalStock < 0 && *g.TotalPhysicalStock != model.UnlimitedStock {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "physical stock must not be negative"})
            }
            // Normalize the legacy sentinel to the NULL representation.
            total := g.TotalPhysicalStock
            if total != nil && *total == model.UnlimitedStock {
                total = nil
            }
            if len(g.Items) == 0 {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "variant group must have at least one item"})
            }
            items := make([]repository.NewItem, 0, len(g.Items))
            for _, it := range g.Items {
                if strings.TrimSpace(it.Name) == "" || it.Price < 0 {
                    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item"})
                }
                sda := it.StockDeductionAmount
                if sda < 1 {
                    sda = 1
                }
                items = append(items, repository.NewItem{
                    Name:                 it.Name,
                    Price:                it.Price,
                    StockDeductionAmount: sda,
                    ExpirationAt:         it.ExpirationAt,
                })
            }
            groups = append(groups, repository.NewVariantGroup{
                GroupName:          g.GroupName,
                TotalPhysicalStock: total,
                StockUnitType:      g.StockUnitType,
                Items:              items,
            })
        }
        rounds = append(rounds, repository.NewRound{
            RoundName:            rd.RoundName,
            Status:               status,
            PublishAt:            rd.PublishAt,
            DeadlineAt:           rd.DeadlineAt,
            PickupAt:             rd.PickupAt,
            PickupDeadlineAt:     rd.PickupDeadlineAt,
            IsPrepaymentRequired: rd.IsPrepaymentRequired,
            VariantGroups:        groups,
        })
    }

    id, err := h.Products.Create(c.Request().Context(), req.GroupName, req.Description, req.StorageType, rounds)
    if err != nil {
        log.Printf("create product failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"product_id": id})
}

// ArchiveProduct handles DELETE /v1/admin/products/:id.  Archiving hides
// the product from the storefront; historical orders keep resolving.
func (h *AdminProductHandler) ArchiveProduct(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
    }
    err := h.Products.Archive(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
        log.Printf("archive product %d failed: %v", id, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to archive product"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "product archived"})
}

// ListRoundOrders handles GET /v1/admin/rounds/:id/orders, the staff view
// of every order placed against a sales round.
func (h *AdminProductHandler) ListRoundOrders(c echo.Context) error {
    roundID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid round id"})
    }
    orders, err := h.Orders.ListByRound(c.Request().Context(), roundID)
    if err != nil {
        log.Printf("list orders for round %d failed: %v", roundID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list orders"})
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
