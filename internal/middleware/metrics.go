package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nextmachines/fiuupay/internal/metrics"
)

// Metrics records request counts and latency per matched route.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := statusOf(c, err)
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Method(), status, time.Since(start))
		return err
	}
}
