package server

import (
    "context"
    "log/slog"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/nextmachines/fiuupay/internal/config"
    "github.com/nextmachines/fiuupay/internal/fiuu"
    "github.com/nextmachines/fiuupay/internal/metrics"
    "github.com/nextmachines/fiuupay/internal/middleware"
    "github.com/nextmachines/fiuupay/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
    app   *fiber.App
    cfg   config.Config
    db    *pgxpool.Pool
    cache *redis.Client
}

// Option customizes the route dependencies built by New.
type Option func(*routes.Deps)

// WithGateway replaces the HTTP payment gateway client.
func WithGateway(gw fiuu.Gateway) Option {
    return func(d *routes.Deps) { d.Gateway = gw }
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// db and cache may be nil in development; in-memory stores replace them.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger, opts ...Option) (*Server, error) {
    app := fiber.New(fiber.Config{
        AppName:      cfg.AppName,
        ReadTimeout:  30 * time.Second,
        WriteTimeout: 30 * time.Second,
        ErrorHandler: middleware.ErrorHandler(logger),
    })

    deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, Metrics: metrics.New()}
    for _, opt := range opts {
        opt(&deps)
    }
    if err := routes.Setup(app, deps); err != nil {
        return nil, err
    }

    return &Server{app: app, cfg: cfg, db: db, cache: cache}, nil
}

// App exposes the underlying fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
    return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
    return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
    return s.app.ShutdownWithContext(ctx)
}
