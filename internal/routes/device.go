package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/nextmachines/fiuupay/internal/device"
)

// RegisterDeviceRoutes wires device registry endpoints.
func RegisterDeviceRoutes(r fiber.Router, h *device.Handler) {
    r.Post("/add-device", h.Add)
    r.Get("/devices", h.List)
}
