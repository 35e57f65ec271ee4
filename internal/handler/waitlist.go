package handler

import (
    "errors"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
    "github.com/sooye-park/groupbuy-reservation/internal/repository"
)

// WaitlistHandler lets customers queue for sold-out variant groups and
// review their pending entries.  Entries are only ever consumed by the
// staff stock replenishment flow.
type WaitlistHandler struct {
    Products *repository.ProductRepo
    Waitlist *repository.WaitlistRepo
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(products *repository.ProductRepo, waitlist *repository.WaitlistRepo) *WaitlistHandler {
    if products == nil || waitlist == nil {
        panic("nil repository passed to NewWaitlistHandler")
    }
    return &WaitlistHandler{Products: products, Waitlist: waitlist}
}

type joinWaitlistReq struct {
    ProductID      uint64 `json:"product_id"`
    RoundID        uint64 `json:"round_id"`
    VariantGroupID uint64 `json:"variant_group_id"`
    ItemID         uint64 `json:"item_id"`
    Quantity       int64  `json:"quantity"`
}

// Join handles POST /v1/waitlist.  Every join appends a fresh entry;
// repeated joins by the same user are never merged into one row, because
// merging would move the earlier quantity's position in the queue and
// break first-come-first-served ordering.
func (h *WaitlistHandler) Join(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req joinWaitlistReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if req.ProductID == 0 || req.RoundID == 0 || req.VariantGroupID == 0 || req.ItemID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
    }
    if req.Quantity <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
    }

    ctx := c.Request().Context()
    tx, err := h.Products.DB().BeginTx(ctx, nil)
    if err != nil {
        log.Printf("join waitlist: begin tx failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if _, err := h.Products.GetRoundTx(ctx, tx, req.ProductID, req.RoundID); err != nil {
        return joinWaitlistError(c, err)
    }
    // Lock the group row so the pending counter update below cannot race a
    // concurrent fulfillment recomputing the same counter.
    if _, err := h.Products.GetVariantGroupForUpdateTx(ctx, tx, req.RoundID, req.VariantGroupID); err != nil {
        return joinWaitlistError(c, err)
    }
    if _, err := h.Products.GetItemTx(ctx, tx, req.VariantGroupID, req.ItemID); err != nil {
        return joinWaitlistError(c, err)
    }

    entry := &model.WaitlistEntry{
        RoundID:        req.RoundID,
        VariantGroupID: req.VariantGroupID,
        ItemID:         req.ItemID,
        UserID:         userID,
        Quantity:       req.Quantity,
    }
    if err := h.Waitlist.AppendTx(ctx, tx, entry); err != nil {
        log.Printf("join waitlist: append failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
    }
    pending, err := h.Waitlist.PendingQuantityTx(ctx, tx, req.VariantGroupID)
    if err != nil {
        log.Printf("join waitlist: pending recount failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
    }
    if err := h.Products.SetWaitlistCountTx(ctx, tx, req.VariantGroupID, pending); err != nil {
        log.Printf("join waitlist: counter update failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
    }
    if err := tx.Commit(); err != nil {
        log.Printf("join waitlist: commit failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
    }
    committed = true

    return c.JSON(http.StatusCreated, echo.Map{
        "message":  "added to waitlist",
        "entry_id": entry.ID,
    })
}

func joinWaitlistError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrProductNotFound),
        errors.Is(err, repository.ErrRoundNotFound),
        errors.Is(err, repository.ErrVariantGroupNotFound),
        errors.Is(err, repository.ErrItemNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    }
    log.Printf("join waitlist failed: %v", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
}

// ListMine handles GET /v1/my-waitlist.
func (h *WaitlistHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    entries, err := h.Waitlist.ListByUser(c.Request().Context(), userID)
    if err != nil {
        log.Printf("list waitlist for user %d failed: %v", userID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list waitlist"})
    }
    out := make([]echo.Map, 0, len(entries))
    for _, e := range entries {
        out = append(out, echo.Map{
            "entry_id":         e.ID,
            "round_id":         e.RoundID,
            "variant_group_id": e.VariantGroupID,
            "item_id":          e.ItemID,
            "quantity":         e.Quantity,
            "joined_at":        e.CreatedAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"entries": out})
}
