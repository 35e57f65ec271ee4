package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/handler"
    "github.com/sooye-park/groupbuy-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitoring probes hit this to verify liveness.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Rotates the refresh token.
    g.POST("/refresh", a.Refresh)
    // Issues a new access token without rotating the refresh token.
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout does not require JWT authentication: the handler accepts a
    // refresh_token in the body, or a bearer token for logout-all.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN", "MASTER"))
    auth.GET("/me", a.Me)

    // Alias so clients can also terminate a session at the top level.
    e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers unauthenticated storefront endpoints.  These
// routes return sanitized catalog data with live availability and apply
// no JWT or role middleware; the optional response cache middleware is
// attached by the caller.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, mw ...echo.MiddlewareFunc) {
    // Browse the catalog: non-archived products with their latest round.
    e.GET("/v1/products", cat.ListProducts, mw...)
    // Full product page: rounds, variant groups, items, live remaining stock.
    e.GET("/v1/products/:id", cat.GetProduct, mw...)
}
