package router // router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/handler"
    "github.com/sooye-park/groupbuy-reservation/internal/middleware"
)

// RegisterAdmin registers staff-scoped endpoints under /v1/admin.
// All routes require a valid JWT and the ADMIN or MASTER role.
func RegisterAdmin(e *echo.Echo, products *handler.AdminProductHandler, stock *handler.StockHandler, jwtSecret string) {
    g := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN", "MASTER"),
    )

    // ---- Catalog ----
    g.POST("/products", products.CreateProduct)
    g.DELETE("/products/:id", products.ArchiveProduct)

    // ---- Stock ----
    // Raises capacity and converts queued waitlist entries in one pass.
    g.POST("/stock", stock.AddStock)

    // ---- Orders ----
    g.GET("/rounds/:id/orders", products.ListRoundOrders)
}
