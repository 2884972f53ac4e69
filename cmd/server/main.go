package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv" // loads .env files into the process environment
    "github.com/labstack/echo/v4"

    "github.com/hyeonwoo/studycafe-server/internal/booking"
    "github.com/hyeonwoo/studycafe-server/internal/config"
    "github.com/hyeonwoo/studycafe-server/internal/database"
    "github.com/hyeonwoo/studycafe-server/internal/handler"
    "github.com/hyeonwoo/studycafe-server/internal/payment"
    "github.com/hyeonwoo/studycafe-server/internal/queue"
    "github.com/hyeonwoo/studycafe-server/internal/repository"
    "github.com/hyeonwoo/studycafe-server/internal/router"
    queue_publisher "github.com/hyeonwoo/studycafe-server/internal/service"
)

func main() {
    // Load a .env file when one is present; real deployments set the
    // environment directly and the file is absent.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient() // nil when Redis is unreachable; middleware and rules degrade

    // Repositories.
    users := repository.NewUserRepo(db)
    rooms := repository.NewRoomRepo(db)
    reservations := repository.NewReservationRepo(db)
    pays := repository.NewPaymentRepo(db)
    pools := repository.NewPoolRepo(db)
    transactions := repository.NewTransactionRepo(db)
    logs := repository.NewLogRepo(db)

    rules := config.NewRulesStore(rdb, config.LoadRuleDefaults())
    notifier := &queue_publisher.Notifier{}

    // The booking and payment services reference each other: bookings
    // route refunds through the ledger and payments close reservations.
    // The booking side binds its ledger after both exist.
    bookSvc := booking.NewService(reservations, rooms, users, nil, notifier, logs, rules)
    bookSvc.SystemUserID = cfg.SystemUserID
    paySvc := payment.NewService(pays, pools, transactions, reservations, users, notifier, logs, bookSvc.Locks())
    paySvc.TerminalCatID = cfg.TerminalCatID
    bookSvc.BindLedger(paySvc)

    // Consume notification events in the background; the consumer
    // reconnects on its own when RabbitMQ drops.
    go func() {
        if err := queue.StartNotifyConsumer(); err != nil {
            log.Printf("notify consumer: %v", err)
        }
    }()

    h := router.Handlers{
        Auth:        handler.NewAuthHandler(cfg, users),
        Booking:     handler.NewBookingHandler(bookSvc, reservations, users),
        Payment:     handler.NewPaymentHandler(paySvc),
        Transaction: handler.NewTransactionHandler(paySvc, transactions),
        Room:        handler.NewRoomHandler(rooms),
        Rules:       handler.NewRulesHandler(rules),
    }

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAPI(e, h, cfg.JWTSecret, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
