package device

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

// OwnerFunc resolves the authenticated user id for the request.
type OwnerFunc func(c *fiber.Ctx) (string, bool)

// Handler exposes device HTTP endpoints.
type Handler struct {
	service *Service
	owner   OwnerFunc
}

// NewHandler builds a device HTTP handler.
func NewHandler(service *Service, owner OwnerFunc) *Handler {
	return &Handler{service: service, owner: owner}
}

type addRequest struct {
	Name            string `json:"name"`
	ApplicationCode string `json:"application_code"`
	SecretKey       string `json:"secret_key"`
}

// Add registers a device for the authenticated user.
func (h *Handler) Add(c *fiber.Ctx) error {
	userID, ok := h.owner(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid token")
	}
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	device, err := h.service.Add(c.UserContext(), userID, AddInput{
		Name:            req.Name,
		ApplicationCode: req.ApplicationCode,
		SecretKey:       req.SecretKey,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":   "Device added successfully",
		"device_id": device.ID,
	})
}

// List returns the authenticated user's devices.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, ok := h.owner(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid token")
	}
	devices, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(devices)
}
