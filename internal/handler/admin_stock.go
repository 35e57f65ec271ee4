package handler

import (
    "context"
    "errors"
    "fmt"
    "log"
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
    "github.com/sooye-park/groupbuy-reservation/internal/queue"
    "github.com/sooye-park/groupbuy-reservation/internal/repository"
    queuepublisher "github.com/sooye-park/groupbuy-reservation/internal/service"
    "github.com/sooye-park/groupbuy-reservation/internal/stock"
)

// StockHandler implements the staff replenishment flow: raise a variant
// group's capacity and immediately convert queued waitlist entries into
// orders, oldest first, until the added stock is spent.
type StockHandler struct {
    Users    *repository.UserRepo
    Products *repository.ProductRepo
    Orders   *repository.OrderRepo
    Waitlist *repository.WaitlistRepo
}

// NewStockHandler constructs a StockHandler.
func NewStockHandler(users *repository.UserRepo, products *repository.ProductRepo, orders *repository.OrderRepo, waitlist *repository.WaitlistRepo) *StockHandler {
    if users == nil || products == nil || orders == nil || waitlist == nil {
        panic("nil repository passed to NewStockHandler")
    }
    return &StockHandler{Users: users, Products: products, Orders: orders, Waitlist: waitlist}
}

type addStockReq struct {
    ProductID       uint64 `json:"product_id"`
    RoundID         uint64 `json:"round_id"`
    VariantGroupID  uint64 `json:"variant_group_id"`
    AdditionalStock int64  `json:"additional_stock"`
}

// AddStock handles POST /v1/admin/stock.  Capacity increase and waitlist
// conversion happen in one transaction so no outside buyer can slip in
// between the raise and the queue walk.  Conversion failures are counted
// per entry and never abort the pass; notification events go out only
// after the transaction commits.
func (h *StockHandler) AddStock(c echo.Context) error {
    var req addStockReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if req.ProductID == 0 || req.RoundID == 0 || req.VariantGroupID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
    }
    if req.AdditionalStock <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "additional stock must be positive"})
    }

    ctx := c.Request().Context()
    result, events, err := h.replenish(ctx, req)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrProductNotFound),
            errors.Is(err, repository.ErrRoundNotFound),
            errors.Is(err, repository.ErrVariantGroupNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
        }
        log.Printf("stock replenishment failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add stock"})
    }

    for _, evt := range events {
        if err := queuepublisher.PublishWaitlistConfirmed(ctx, evt); err != nil {
            log.Printf("waitlist confirmation for order %d not published: %v", evt.OrderID, err)
        }
    }

    return c.JSON(http.StatusOK, echo.Map{
        "converted_count": result.ConvertedCount(),
        "failed_count":    result.FailedCount,
    })
}

// replenish runs the fulfillment transaction and returns the walk result
// plus the notification events to dispatch after commit.
func (h *StockHandler) replenish(ctx context.Context, req addStockReq) (stock.FulfillResult, []queue.WaitlistConfirmedEvent, error) {
    var zero stock.FulfillResult

    tx, err := h.Products.DB().BeginTx(ctx, nil)
    if err != nil {
        return zero, nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    round, err := h.Products.GetRoundTx(ctx, tx, req.ProductID, req.RoundID)
    if err != nil {
        return zero, nil, err
    }
    // The group lock serializes this pass against concurrent admissions
    // and other replenishments touching the same group.
    if _, err := h.Products.GetVariantGroupForUpdateTx(ctx, tx, req.RoundID, req.VariantGroupID); err != nil {
        return zero, nil, err
    }
    if err := h.Products.AddStockTx(ctx, tx, req.VariantGroupID, req.AdditionalStock); err != nil {
        return zero, nil, err
    }

    entries, err := h.Waitlist.ListByRoundForUpdateTx(ctx, tx, req.RoundID)
    if err != nil {
        return zero, nil, err
    }

    userIDs := make([]uint64, 0, len(entries))
    seen := make(map[uint64]struct{}, len(entries))
    for _, e := range entries {
        if _, ok := seen[e.UserID]; !ok {
            seen[e.UserID] = struct{}{}
            userIDs = append(userIDs, e.UserID)
        }
    }
    users, err := h.Users.GetByIDsTx(ctx, tx, userIDs)
    if err != nil {
        return zero, nil, err
    }

    // Each conversion writes inside its own savepoint.  A failed entry
    // must leave zero state behind: without the savepoint, an order insert
    // that succeeded before a later statement erred would commit with the
    // rest of the walk while the entry stays queued, and the same quantity
    // would then exist as both an order and a live waitlist entry.
    var events []queue.WaitlistConfirmedEvent
    var txBroken error
    spSeq := 0
    convert := func(entry model.WaitlistEntry, quantity int64) error {
        if txBroken != nil {
            return txBroken
        }
        spSeq++
        err := repository.WithSavepointTx(ctx, tx, fmt.Sprintf("entry_%d", spSeq), func() error {
            if round.PickupAt == nil {
                return repository.ErrPickupDateMissing
            }
            user, ok := users[entry.UserID]
            if !ok {
                return repository.ErrUserNotFound
            }
            item, err := h.Products.GetItemTx(ctx, tx, entry.VariantGroupID, entry.ItemID)
            if err != nil {
                return err
            }
            order := &model.Order{
                OrderNumber:           "GB-W-" + uuid.NewString(),
                UserID:                entry.UserID,
                Status:                model.OrderStatusReserved,
                TotalPrice:            item.Price * quantity,
                CustomerName:          user.Name,
                CustomerPhoneLast4:    user.PhoneLast4(),
                PickupAt:              *round.PickupAt,
                PickupDeadlineAt:      round.PickupDeadlineAt,
                WasPrepaymentRequired: round.IsPrepaymentRequired,
                Notes:                 "Converted automatically from a waitlist entry.",
                Items: []model.OrderItem{{
                    ProductID:            req.ProductID,
                    RoundID:              req.RoundID,
                    VariantGroupID:       entry.VariantGroupID,
                    ItemID:               entry.ItemID,
                    ProductName:          round.ProductName,
                    ItemName:             item.Name,
                    Quantity:             quantity,
                    UnitPrice:            item.Price,
                    StockDeductionAmount: item.StockDeductionAmount,
                }},
            }
            if err := h.Orders.CreateTx(ctx, tx, order); err != nil {
                return err
            }
            if err := h.Users.IncrementOrderStatsTx(ctx, tx, entry.UserID); err != nil {
                return err
            }
            events = append(events, queue.WaitlistConfirmedEvent{
                OrderID:     order.ID,
                UserID:      entry.UserID,
                ProductName: round.ProductName,
                ItemName:    item.Name,
                Quantity:    quantity,
                ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
            })
            return nil
        })
        // A broken savepoint means the transaction state is unknown; stop
        // converting and abort the whole pass after the walk returns.
        var spErr *repository.SavepointError
        if errors.As(err, &spErr) {
            txBroken = err
        }
        return err
    }

    result := stock.Fulfill(entries, req.VariantGroupID, req.AdditionalStock, convert)
    if txBroken != nil {
        return zero, nil, txBroken
    }

    // Apply queue mutations for everything the walk converted.
    for _, conv := range result.Conversions {
        if conv.Remainder > 0 {
            err = h.Waitlist.ReduceQuantityTx(ctx, tx, conv.Entry.ID, conv.Remainder)
        } else {
            err = h.Waitlist.DeleteTx(ctx, tx, conv.Entry.ID)
        }
        if err != nil {
            return zero, nil, err
        }
    }

    pending, err := h.Waitlist.PendingQuantityTx(ctx, tx, req.VariantGroupID)
    if err != nil {
        return zero, nil, err
    }
    if err := h.Products.SetWaitlistCountTx(ctx, tx, req.VariantGroupID, pending); err != nil {
        return zero, nil, err
    }

    if err := tx.Commit(); err != nil {
        return zero, nil, err
    }
    committed = true
    return result, events, nil
}
