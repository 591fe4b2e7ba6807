package routes

import (
    "context"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/adaptor"
)

const healthProbeTimeout = 2 * time.Second

// probe runs ping when the dependency is configured and reports its state.
func probe(configured bool, ping func() error) (string, bool) {
    if !configured {
        return "disabled", true
    }
    if err := ping(); err != nil {
        return err.Error(), false
    }
    return "ok", true
}

// RegisterHealthRoutes adds /healthz and the Prometheus scrape endpoint.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
    app.Get("/healthz", func(c *fiber.Ctx) error {
        ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
        defer cancel()

        pg, pgOK := probe(d.DB != nil, func() error { return d.DB.Ping(ctx) })
        rd, rdOK := probe(d.Cache != nil, func() error { return d.Cache.Ping(ctx).Err() })

        code := fiber.StatusOK
        if !pgOK || !rdOK {
            code = fiber.StatusServiceUnavailable
        }
        return c.Status(code).JSON(fiber.Map{
            "app":       d.Cfg.AppName,
            "status":    fiber.Map{"postgres": pg, "redis": rd},
            "timestamp": time.Now().UTC().Format(time.RFC3339Nano),
        })
    })

    app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
}
