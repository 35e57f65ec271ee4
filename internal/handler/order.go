package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "sort"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/model"
    "github.com/sooye-park/groupbuy-reservation/internal/queue"
    "github.com/sooye-park/groupbuy-reservation/internal/repository"
    queuepublisher "github.com/sooye-park/groupbuy-reservation/internal/service"
    "github.com/sooye-park/groupbuy-reservation/internal/stock"
)

// OrderHandler owns the order lifecycle: the admission transaction that
// turns a cart into a reservation, plus customer-facing reads and
// cancellation.
type OrderHandler struct {
    Users    *repository.UserRepo
    Products *repository.ProductRepo
    Orders   *repository.OrderRepo
}

// NewOrderHandler constructs an OrderHandler.  All dependencies must be non-nil.
func NewOrderHandler(users *repository.UserRepo, products *repository.ProductRepo, orders *repository.OrderRepo) *OrderHandler {
    if users == nil || products == nil || orders == nil {
        panic("nil repository passed to NewOrderHandler")
    }
    return &OrderHandler{Users: users, Products: products, Orders: orders}
}

type orderItemReq struct {
    ProductID      uint64 `json:"product_id"`
    RoundID        uint64 `json:"round_id"`
    VariantGroupID uint64 `json:"variant_group_id"`
    ItemID         uint64 `json:"item_id"`
    Quantity       int64  `json:"quantity"`
}

type customerInfoReq struct {
    Name  string `json:"name"`
    Phone string `json:"phone"`
}

type placeOrderReq struct {
    Items        []orderItemReq   `json:"items"`
    Notes        string           `json:"notes"`
    CustomerInfo *customerInfoReq `json:"customer_info"`
}

// orderContact resolves the contact stamped onto an order.  The request
// may override the stored profile, say when someone else picks up; any
// blank field falls back to the profile.  Only the last four digits of
// the phone are kept either way.
func orderContact(user *model.User, override *customerInfoReq) (name, phoneLast4 string) {
    name = user.Name
    phone := user.Phone
    if override != nil {
        if override.Name != "" {
            name = override.Name
        }
        if override.Phone != "" {
            phone = override.Phone
        }
    }
    return name, model.LastFourDigits(phone)
}

// PlaceOrder handles POST /v1/orders.  The whole admission runs inside a
// single transaction: the variant group rows are locked first, committed
// quantity is recomputed from active orders under those locks, every line
// item is validated against fresh availability, and only then is the order
// written.  Any failure rolls the transaction back; a partial reservation
// is never persisted.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req placeOrderReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(req.Items) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order must contain at least one item"})
    }
    for _, it := range req.Items {
        if it.Quantity <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "item quantity must be positive"})
        }
    }

    ctx := c.Request().Context()
    order, err := h.admit(ctx, userID, req)
    if err != nil {
        if ie, ok := repository.IsInsufficientStock(err); ok {
            return c.JSON(http.StatusConflict, echo.Map{
                "error":     "insufficient stock",
                "product":   ie.ProductName,
                "remaining": ie.Remaining,
            })
        }
        switch {
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "participation is currently restricted"})
        case errors.Is(err, repository.ErrUserNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        case errors.Is(err, repository.ErrProductNotFound),
            errors.Is(err, repository.ErrRoundNotFound),
            errors.Is(err, repository.ErrVariantGroupNotFound),
            errors.Is(err, repository.ErrItemNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
        case errors.Is(err, repository.ErrPickupDateMissing):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "pickup date for the ordered round is not set"})
        }
        log.Printf("order admission failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to place order"})
    }

    // Dispatch after commit; a broker outage must not undo the reservation.
    evt := queue.OrderReservedEvent{
        OrderID:     order.ID,
        OrderNumber: order.OrderNumber,
        UserID:      order.UserID,
        TotalPrice:  order.TotalPrice,
        ItemCount:   len(order.Items),
        PickupAt:    order.PickupAt.Format(time.RFC3339),
        ReservedAt:  time.Now().UTC().Format(time.RFC3339),
    }
    if err := queuepublisher.PublishOrderReserved(ctx, evt); err != nil {
        log.Printf("order %s reserved but event publish failed: %v", order.OrderNumber, err)
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "order_id":     order.ID,
        "order_number": order.OrderNumber,
        "status":       order.Status,
        "total_price":  order.TotalPrice,
        "pickup_at":    order.PickupAt,
    })
}

// admit runs the admission transaction and returns the persisted order.
func (h *OrderHandler) admit(ctx context.Context, userID uint64, req placeOrderReq) (*model.Order, error) {
    tx, err := h.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    user, err := h.Users.GetByIDTx(ctx, tx, userID)
    if err != nil {
        return nil, err
    }
    if user.LoyaltyTier == model.TierRestricted {
        return nil, repository.ErrForbidden
    }

    // Lock every touched variant group row in ascending ID order so two
    // concurrent admissions over overlapping groups cannot deadlock.
    type groupRef struct {
        roundID uint64
        group   *model.VariantGroup
    }
    groupRounds := make(map[uint64]uint64)
    for _, it := range req.Items {
        groupRounds[it.VariantGroupID] = it.RoundID
    }
    groupIDs := make([]uint64, 0, len(groupRounds))
    for id := range groupRounds {
        groupIDs = append(groupIDs, id)
    }
    sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i] < groupIDs[j] })
    groups := make(map[uint64]groupRef, len(groupIDs))
    for _, id := range groupIDs {
        g, err := h.Products.GetVariantGroupForUpdateTx(ctx, tx, groupRounds[id], id)
        if err != nil {
            return nil, err
        }
        groups[id] = groupRef{roundID: groupRounds[id], group: g}
    }

    // Resolve rounds once per (product, round) pair.
    type roundKey struct{ productID, roundID uint64 }
    rounds := make(map[roundKey]*repository.RoundRef)
    for _, it := range req.Items {
        k := roundKey{it.ProductID, it.RoundID}
        if _, ok := rounds[k]; ok {
            continue
        }
        ref, err := h.Products.GetRoundTx(ctx, tx, it.ProductID, it.RoundID)
        if err != nil {
            return nil, err
        }
        rounds[k] = ref
    }

    // Fresh committed quantities under the row locks.
    keys := make([]stock.Key, 0, len(req.Items))
    seenKeys := make(map[stock.Key]struct{})
    for _, it := range req.Items {
        k := stock.Key{ProductID: it.ProductID, RoundID: it.RoundID, VariantGroupID: it.VariantGroupID}
        if _, ok := seenKeys[k]; !ok {
            seenKeys[k] = struct{}{}
            keys = append(keys, k)
        }
    }
    reserved, err := h.Orders.AggregateActiveTx(ctx, tx, keys)
    if err != nil {
        return nil, err
    }

    // The cart itself may ask for the same group more than once; admission
    // checks the combined demand, not each line in isolation.
    requested := make(map[stock.Key]int64)
    for _, it := range req.Items {
        k := stock.Key{ProductID: it.ProductID, RoundID: it.RoundID, VariantGroupID: it.VariantGroupID}
        requested[k] += it.Quantity
    }
    for k, qty := range requested {
        ref := groups[k.VariantGroupID]
        avail := stock.Compute(ref.group.TotalPhysicalStock, reserved[k])
        if !avail.CanSatisfy(qty) {
            round := rounds[roundKey{k.ProductID, k.RoundID}]
            return nil, &repository.InsufficientStockError{
                ProductName: round.ProductName,
                Remaining:   avail.Clamped(),
            }
        }
    }

    // Per-item validation and price capture.
    items := make([]model.OrderItem, 0, len(req.Items))
    var totalPrice int64
    for _, it := range req.Items {
        item, err := h.Products.GetItemTx(ctx, tx, it.VariantGroupID, it.ItemID)
        if err != nil {
            return nil, err
        }
        round := rounds[roundKey{it.ProductID, it.RoundID}]
        items = append(items, model.OrderItem{
            ProductID:            it.ProductID,
            RoundID:              it.RoundID,
            VariantGroupID:       it.VariantGroupID,
            ItemID:               it.ItemID,
            ProductName:          round.ProductName,
            ItemName:             item.Name,
            Quantity:             it.Quantity,
            UnitPrice:            item.Price,
            StockDeductionAmount: item.StockDeductionAmount,
        })
        totalPrice += item.Price * it.Quantity
    }

    // Pickup schedule follows the first item's round.
    first := rounds[roundKey{req.Items[0].ProductID, req.Items[0].RoundID}]
    if first.PickupAt == nil {
        return nil, repository.ErrPickupDateMissing
    }

    customerName, customerPhone := orderContact(&user, req.CustomerInfo)
    order := &model.Order{
        OrderNumber:           "GB-" + uuid.NewString(),
        UserID:                userID,
        Status:                model.OrderStatusReserved,
        TotalPrice:            totalPrice,
        CustomerName:          customerName,
        CustomerPhoneLast4:    customerPhone,
        PickupAt:              *first.PickupAt,
        PickupDeadlineAt:      first.PickupDeadlineAt,
        WasPrepaymentRequired: first.IsPrepaymentRequired,
        Notes:                 req.Notes,
        Items:                 items,
    }
    if err := h.Orders.CreateTx(ctx, tx, order); err != nil {
        return nil, err
    }
    if err := h.Users.IncrementOrderStatsTx(ctx, tx, userID); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return order, nil
}

// ListMyOrders handles GET /v1/my-orders.
func (h *OrderHandler) ListMyOrders(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orders, err := h.Orders.ListByUser(c.Request().Context(), userID)
    if err != nil {
        log.Printf("list orders for user %d failed: %v", userID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list orders"})
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// GetOrder handles GET /v1/orders/:id.  Customers can only read their own
// orders; a foreign order returns 404 rather than confirming it exists.
func (h *OrderHandler) GetOrder(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    detail, err := h.Orders.GetByIDForUser(c.Request().Context(), orderID, userID)
    if err != nil {
        if errors.Is(err, repository.ErrOrderNotFound) || errors.Is(err, repository.ErrForbidden) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        }
        log.Printf("get order %d failed: %v", orderID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
    }
    return c.JSON(http.StatusOK, detail)
}

// CancelOrder handles DELETE /v1/orders/:id.  Cancellation flips the
// status to CANCELED in place, which releases the quantity from the
// committed aggregate without touching any counter.
func (h *OrderHandler) CancelOrder(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    err = h.Orders.CancelForUser(c.Request().Context(), orderID, userID)
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, echo.Map{"message": "order canceled"})
    case errors.Is(err, repository.ErrOrderNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "order can no longer be canceled"})
    default:
        log.Printf("cancel order %d failed: %v", orderID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel order"})
    }
}
