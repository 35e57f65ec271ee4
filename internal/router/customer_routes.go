package router

import (
    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/handler"
    "github.com/sooye-park/groupbuy-reservation/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role.  Customers can check
// their cart against live stock, place and cancel orders, and queue for
// sold-out variant groups.
func RegisterCustomer(e *echo.Echo, cart *handler.CartHandler, orders *handler.OrderHandler, waitlist *handler.WaitlistHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("CUSTOMER"),
    )

    // Advisory availability check; the admission transaction revalidates.
    g.POST("/cart/check", cart.CheckCart)

    // Orders.
    g.POST("/orders", orders.PlaceOrder)
    g.GET("/my-orders", orders.ListMyOrders)
    g.GET("/orders/:id", orders.GetOrder)
    g.DELETE("/orders/:id", orders.CancelOrder)

    // Waitlist.
    g.POST("/waitlist", waitlist.Join)
    g.GET("/my-waitlist", waitlist.ListMine)
}
