package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the configured origins. "*" allows any origin without credentials.
func CORS(origins string) fiber.Handler {
	origins = strings.TrimSpace(origins)
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, token, Idempotency-Key, X-Request-ID",
		ExposeHeaders:    "X-Request-ID, X-Reference-Id, X-Transaction-Id",
		AllowCredentials: origins != "*",
	})
}
