package main

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/sooye-park/groupbuy-reservation/internal/config"
    "github.com/sooye-park/groupbuy-reservation/internal/database"
    "github.com/sooye-park/groupbuy-reservation/internal/handler"
    "github.com/sooye-park/groupbuy-reservation/internal/middleware"
    "github.com/sooye-park/groupbuy-reservation/internal/queue"
    "github.com/sooye-park/groupbuy-reservation/internal/repository"
    "github.com/sooye-park/groupbuy-reservation/internal/router"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connection failed: %v", err)
    }
    defer db.Close()

    // Redis backs the response cache and rate limiter; both degrade to
    // no-ops when the client is nil.
    rdb := config.NewRedisClient()

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    products := repository.NewProductRepo(db)
    orders := repository.NewOrderRepo(db)
    waitlist := repository.NewWaitlistRepo(db)

    authHandler := handler.NewAuthHandler(cfg, users, tokens)
    catalogHandler := handler.NewCatalogHandler(products, orders)
    cartHandler := handler.NewCartHandler(products, orders)
    orderHandler := handler.NewOrderHandler(users, products, orders)
    waitlistHandler := handler.NewWaitlistHandler(products, waitlist)
    stockHandler := handler.NewStockHandler(users, products, orders, waitlist)
    adminProductHandler := handler.NewAdminProductHandler(products, orders)

    e := echo.New()
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authHandler, cfg.JWTSecret)
    // The catalog is the hottest read path; it alone goes through the cache.
    router.RegisterPublic(e, catalogHandler, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
    router.RegisterCustomer(e, cartHandler, orderHandler, waitlistHandler, cfg.JWTSecret)
    router.RegisterAdmin(e, adminProductHandler, stockHandler, cfg.JWTSecret)

    // Notification consumer runs for the life of the process, reconnecting
    // on broker failures.
    go func() {
        if err := queue.StartNotificationConsumer(); err != nil {
            log.Printf("notification consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
