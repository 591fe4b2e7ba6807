package qr

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

// OwnerFunc resolves the authenticated user id for the request.
type OwnerFunc func(c *fiber.Ctx) (string, bool)

// Handler exposes QR payment endpoints.
type Handler struct {
	service *Service
	owner   OwnerFunc
}

// NewHandler constructs a QR handler.
func NewHandler(service *Service, owner OwnerFunc) *Handler {
	return &Handler{service: service, owner: owner}
}

type generateRequest struct {
	Amount   *float64 `json:"amount"`
	DeviceID string   `json:"device_id"`
}

// Generate returns the QR code image for a new payment.
func (h *Handler) Generate(c *fiber.Ctx) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	img, err := h.service.Generate(c.UserContext(), in)
	if err != nil {
		return err
	}
	c.Set("X-Reference-Id", img.Link.ReferenceID)
	c.Set("X-Transaction-Id", img.Link.TransactionID)
	c.Set(fiber.HeaderContentType, img.ContentType)
	return c.Status(http.StatusOK).Send(img.Data)
}

// Link returns the gateway summary without downloading the image.
func (h *Handler) Link(c *fiber.Ctx) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	link, err := h.service.GenerateLink(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(link)
}

// History lists the caller's recent payments.
func (h *Handler) History(c *fiber.Ctx) error {
	userID, ok := h.owner(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid token")
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apperr.Validation("limit must be a non-negative integer")
		}
		limit = n
	}
	links, err := h.service.History(c.UserContext(), userID, limit)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(links)
}

func (h *Handler) input(c *fiber.Ctx) (GenerateInput, error) {
	userID, ok := h.owner(c)
	if !ok {
		return GenerateInput{}, fiber.NewError(http.StatusUnauthorized, "Invalid token")
	}
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return GenerateInput{}, apperr.Validation("invalid request body")
	}
	if req.Amount == nil {
		return GenerateInput{}, apperr.Validation("amount is required")
	}
	return GenerateInput{UserID: userID, DeviceID: req.DeviceID, Amount: *req.Amount}, nil
}
