package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/hyeonwoo/studycafe-server/internal/config"
    "github.com/hyeonwoo/studycafe-server/internal/handler"    // import the handlers that implement business logic
    "github.com/hyeonwoo/studycafe-server/internal/middleware" // import middleware for JWT authentication and grade enforcement
    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// Handlers bundles every handler the API mounts.  main constructs them
// once and passes the set here so the wiring stays in one place.
type Handlers struct {
    Auth        *handler.AuthHandler
    Booking     *handler.BookingHandler
    Payment     *handler.PaymentHandler
    Transaction *handler.TransactionHandler
    Room        *handler.RoomHandler
    Rules       *handler.RulesHandler
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Map the GET request at path "/healthz" to the Health handler.  This
    // endpoint can be used by load balancers or monitoring systems to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAPI mounts the whole API surface.  Unauthenticated operations
// live under /v1/auth, everything else under /v1 behind JWT auth, with
// grade gates on the staff and admin groups.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
    // Open group for register and login; these mint the tokens everything
    // else requires.
    g := e.Group("/v1/auth")
    g.POST("/register", h.Auth.Register)
    g.POST("/login", h.Auth.Login)

    // Everything below requires a valid access token.  The rate limiter
    // runs before JWT parsing so unauthenticated floods are shed early;
    // it degrades to a no-op when Redis is absent.
    auth := e.Group("/v1")
    auth.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", h.Auth.Me)

    cacheCfg := config.LoadCacheConfig()

    // Reservation writes bust the cached day grid so a freshly confirmed
    // or canceled booking is visible on the next timetable read.
    books := auth.Group("")
    books.Use(middleware.NewCacheInvalidator(cacheCfg, rdb, "/v1/books", "/v1/rooms"))
    books.POST("/books", h.Booking.Prepare)
    books.POST("/books/immediately", h.Booking.Immediately)
    books.PUT("/books/:id", h.Booking.Update)
    books.DELETE("/books/:id", h.Booking.Delete)
    auth.GET("/books/mine", h.Booking.ListMine)

    // The day grid is the hottest read in the system, so it sits behind
    // the Redis response cache.
    cached := auth.Group("")
    cached.Use(middleware.NewRedisCache(cacheCfg, rdb))
    cached.GET("/books", h.Booking.ListByDate)
    cached.GET("/rooms", h.Room.List)

    // Payments.  Submission and lookup are open to signed-in users; the
    // dispatch itself enforces ownership semantics.
    auth.POST("/pays", h.Payment.Process)
    auth.GET("/pays", h.Payment.List)
    auth.GET("/pays/:id", h.Payment.Get)

    // Card terminal endpoints.  The terminal authenticates like any other
    // client and polls for work.
    auth.GET("/transaction", h.Transaction.Pending)
    auth.POST("/transaction", h.Transaction.Callback)

    // Staff console: grade 15 and up.
    staff := auth.Group("")
    staff.Use(middleware.RequireGrade(model.GradeManager))
    staff.Use(middleware.NewCacheInvalidator(cacheCfg, rdb, "/v1/books", "/v1/rooms"))
    staff.DELETE("/books/:id/admin", h.Booking.AdminDelete)
    staff.PUT("/pays/:id", h.Payment.Amend)
    staff.GET("/transaction/all", h.Transaction.ListAll)
    staff.GET("/rules", h.Rules.Get)
    staff.PUT("/rules/closed", h.Rules.SetClosed)
    staff.POST("/rules/closed-dates", h.Rules.AddClosedDate)
    staff.DELETE("/rules/closed-dates/:date", h.Rules.RemoveClosedDate)
    staff.PUT("/rules/hours", h.Rules.SetHours)

    // Admin only: grade 20.
    admin := auth.Group("")
    admin.Use(middleware.RequireGrade(model.GradeAdmin))
    admin.Use(middleware.NewCacheInvalidator(cacheCfg, rdb, "/v1/rooms"))
    admin.POST("/rooms", h.Room.Create)
}
