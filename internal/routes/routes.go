package routes

import (
    "fmt"
    "log/slog"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/recover"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/nextmachines/fiuupay/internal/auth"
    "github.com/nextmachines/fiuupay/internal/config"
    "github.com/nextmachines/fiuupay/internal/device"
    "github.com/nextmachines/fiuupay/internal/fiuu"
    "github.com/nextmachines/fiuupay/internal/identity"
    "github.com/nextmachines/fiuupay/internal/metrics"
    "github.com/nextmachines/fiuupay/internal/middleware"
    "github.com/nextmachines/fiuupay/internal/notification"
    "github.com/nextmachines/fiuupay/internal/qr"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
    Cfg     config.Config
    DB      *pgxpool.Pool
    Cache   *redis.Client
    Logger  *slog.Logger
    Metrics *metrics.Metrics
    // Gateway overrides the HTTP gateway built from Cfg.Gateway.
    Gateway fiuu.Gateway
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
    // Enforce DB/Redis presence outside of dev, even though main also checks.
    if !d.Cfg.IsDev() {
        if d.DB == nil {
            return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
        }
        if d.Cache == nil {
            return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
        }
    }
    if d.Logger == nil {
        return fmt.Errorf("logger is required")
    }

    // Middlewares
    app.Use(recover.New())
    app.Use(middleware.RequestID())
    app.Use(middleware.CORS(d.Cfg.CORSOrigins))
    app.Use(middleware.Audit(d.Logger))
    app.Use(middleware.Metrics(d.Metrics))

    // Health
    RegisterHealthRoutes(app, d)

    // Services and handlers
    var (
        identityRepo identity.Repository
        deviceRepo   device.Repository
        paymentRepo  qr.Repository
    )
    if d.DB != nil {
        identityRepo = identity.NewPostgresRepository(d.DB)
        deviceRepo = device.NewPostgresRepository(d.DB)
        paymentRepo = qr.NewPostgresRepository(d.DB)
    } else {
        identityRepo = identity.NewMemoryRepository()
        deviceRepo = device.NewMemoryRepository()
        paymentRepo = qr.NewMemoryRepository()
    }

    tokens, err := auth.NewTokenService(d.Cfg.TokenSecret, d.Cfg.TokenTTL)
    if err != nil {
        return err
    }
    hasher := auth.NewPasswordHasher(d.Cfg.BcryptCost)
    notifier := notification.Fanout{notification.NewLoggerNotifier(d.Logger)}
    if d.Cache != nil {
        notifier = append(notifier, notification.NewRedisPublisher(d.Cache, d.Cfg.EventsChannel))
    }

    identitySvc := identity.NewService(identityRepo, hasher)
    authSvc := auth.NewService(identityRepo, hasher, tokens)
    deviceSvc := device.NewService(deviceRepo, notifier, d.Logger)

    gateway := d.Gateway
    if gateway == nil {
        gateway = fiuu.NewHTTPGateway(d.Cfg.Gateway.PrecreateURL, d.Cfg.Gateway.Timeout)
    }
    qrSvc := qr.NewService(paymentRepo, deviceSvc, gateway, qr.Options{
        Merchant: device.Credentials{
            ApplicationCode: d.Cfg.Gateway.ApplicationCode,
            SecretKey:       d.Cfg.Gateway.SecretKey,
        },
        Profile: qr.Profile{
            StoreID:    d.Cfg.Gateway.StoreID,
            TerminalID: d.Cfg.Gateway.TerminalID,
            ChannelID:  d.Cfg.Gateway.ChannelID,
            Currency:   d.Cfg.Gateway.Currency,
            Version:    d.Cfg.Gateway.Version,
        },
        Notifier: notifier,
        Metrics:  d.Metrics,
        Logger:   d.Logger,
    })

    authHandler := auth.NewHandler(authSvc, d.Metrics)
    deviceHandler := device.NewHandler(deviceSvc, middleware.UserID)
    qrHandler := qr.NewHandler(qrSvc, middleware.UserID)

    // Public routes
    RegisterIdentityRoutes(app, identitySvc, deviceSvc, notifier, d.Logger)
    RegisterAuthRoutes(app, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRatePerMin, d.Metrics))

    // Protected routes
    protected := app.Group("", middleware.BearerAuth(authSvc))
    RegisterProfileRoutes(protected, authHandler)
    RegisterDeviceRoutes(protected, deviceHandler)

    var idempotency fiber.Handler
    if d.Cache != nil {
        idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger, func(c *fiber.Ctx) string {
            id, _ := middleware.UserID(c)
            return id
        })
    }
    RegisterQRRoutes(protected, qrHandler, idempotency)

    return nil
}
