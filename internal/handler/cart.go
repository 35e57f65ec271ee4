package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
    "github.com/sooye-park/groupbuy-reservation/internal/repository"
    "github.com/sooye-park/groupbuy-reservation/internal/stock"
)

// CartHandler validates proposed carts against current availability.  It
// is strictly advisory: nothing here mutates reservation or cart state,
// and its verdict must be re-validated by the admission transaction
// because the ledger can change between check and submit.
type CartHandler struct {
    ProductRepo *repository.ProductRepo
    OrderRepo   *repository.OrderRepo
}

// NewCartHandler constructs a CartHandler.  All dependencies must be non-nil.
func NewCartHandler(productRepo *repository.ProductRepo, orderRepo *repository.OrderRepo) *CartHandler {
    if productRepo == nil || orderRepo == nil {
        panic("nil repository passed to NewCartHandler")
    }
    return &CartHandler{ProductRepo: productRepo, OrderRepo: orderRepo}
}

type cartItemReq struct {
    ID                   string `json:"id"` // client-side cart line identifier
    ProductID            uint64 `json:"product_id"`
    RoundID              uint64 `json:"round_id"`
    VariantGroupID       uint64 `json:"variant_group_id"`
    ItemID               uint64 `json:"item_id"`
    Quantity             int64  `json:"quantity"`
    StockDeductionAmount int64  `json:"stock_deduction_amount"`
}

type cartCheckReq struct {
    Items []cartItemReq `json:"items"`
}

type updatedCartItem struct {
    ID          string `json:"id"`
    NewQuantity int64  `json:"new_quantity"`
}

// CheckCart handles POST /v1/cart/check.  For each line item it resolves
// the product, round and variant group; items that no longer resolve are
// flagged for removal.  Otherwise availability is computed from a fresh
// read of all active orders, and over-asking items are reduced to the
// largest quantity that is a multiple of their stock deduction amount.
// An empty cart is trivially sufficient.
func (h *CartHandler) CheckCart(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req cartCheckReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(req.Items) == 0 {
        return c.JSON(http.StatusOK, echo.Map{
            "updated_items":    []updatedCartItem{},
            "removed_item_ids": []string{},
            "is_sufficient":    true,
        })
    }

    ctx := c.Request().Context()

    // One fresh aggregate over the keys the cart touches.
    keys := make([]stock.Key, 0, len(req.Items))
    seen := make(map[stock.Key]struct{}, len(req.Items))
    for _, it := range req.Items {
        k := stock.Key{ProductID: it.ProductID, RoundID: it.RoundID, VariantGroupID: it.VariantGroupID}
        if _, ok := seen[k]; !ok {
            seen[k] = struct{}{}
            keys = append(keys, k)
        }
    }
    committed, err := h.OrderRepo.AggregateActive(ctx, keys)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check stock"})
    }

    // Resolve each distinct product once.
    products := make(map[uint64]*model.Product)
    for _, it := range req.Items {
        if _, ok := products[it.ProductID]; ok {
            continue
        }
        p, err := h.ProductRepo.GetByID(ctx, it.ProductID)
        if err != nil {
            if errors.Is(err, repository.ErrProductNotFound) {
                products[it.ProductID] = nil
                continue
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check stock"})
        }
        products[it.ProductID] = p
    }

    updated := make([]updatedCartItem, 0)
    removed := make([]string, 0)
    sufficient := true

    for _, it := range req.Items {
        product := products[it.ProductID]
        var available stock.Availability
        resolved := false
        if product != nil {
            if round := product.FindRound(it.RoundID); round != nil {
                if group := round.FindVariantGroup(it.VariantGroupID); group != nil {
                    resolved = true
                    k := stock.Key{ProductID: it.ProductID, RoundID: it.RoundID, VariantGroupID: it.VariantGroupID}
                    available = stock.Compute(group.TotalPhysicalStock, committed[k])
                }
            }
        }
        if !resolved {
            removed = append(removed, it.ID)
            sufficient = false
            continue
        }
        if available.CanSatisfy(it.Quantity) {
            continue
        }
        sufficient = false
        adjusted := stock.AdjustQuantity(available.Clamped(), it.StockDeductionAmount)
        if adjusted > 0 {
            updated = append(updated, updatedCartItem{ID: it.ID, NewQuantity: adjusted})
        } else {
            removed = append(removed, it.ID)
        }
    }

    return c.JSON(http.StatusOK, echo.Map{
        "updated_items":    updated,
        "removed_item_ids": removed,
        "is_sufficient":    sufficient,
    })
}
