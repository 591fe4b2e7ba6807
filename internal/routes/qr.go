package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/nextmachines/fiuupay/internal/qr"
)

// RegisterQRRoutes wires QR payment endpoints. idempotency may be nil.
func RegisterQRRoutes(r fiber.Router, h *qr.Handler, idempotency fiber.Handler) {
    if idempotency != nil {
        r.Post("/generate-qr", idempotency, h.Generate)
        r.Post("/generate-qr/link", idempotency, h.Link)
    } else {
        r.Post("/generate-qr", h.Generate)
        r.Post("/generate-qr/link", h.Link)
    }
    r.Get("/payments", h.History)
}
