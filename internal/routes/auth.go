package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/nextmachines/fiuupay/internal/auth"
)

// RegisterAuthRoutes wires the login endpoint.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
    if rateLimiter != nil {
        r.Post("/login", rateLimiter, h.Login)
    } else {
        r.Post("/login", h.Login)
    }
}

// RegisterProfileRoutes wires endpoints about the authenticated user.
func RegisterProfileRoutes(r fiber.Router, h *auth.Handler) {
    r.Get("/me", h.Me)
}
