package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nextmachines/fiuupay/internal/apperr"
	"github.com/nextmachines/fiuupay/internal/identity"
	"github.com/nextmachines/fiuupay/internal/metrics"
)

// LocalsUser is the fiber.Ctx locals key holding the authorized identity.User.
const LocalsUser = "auth_user"

// Handler exposes login and profile endpoints.
type Handler struct {
	svc     *Service
	metrics *metrics.Metrics
}

func NewHandler(svc *Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, metrics: m}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login validates credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperr.Validation("username and password are required")
	}
	token, err := h.svc.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthFailed) {
			h.metrics.Login("failure")
		}
		return err
	}
	h.metrics.Login("success")
	return c.Status(http.StatusOK).JSON(token)
}

// Me returns the profile of the authorized user.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid token")
	}
	return c.JSON(fiber.Map{
		"id":           user.ID,
		"username":     user.Username,
		"company_name": user.CompanyName,
		"address":      user.Address,
		"phone":        user.Phone,
		"created_at":   user.CreatedAt,
	})
}

// CurrentUser returns the user stored by the bearer middleware.
func CurrentUser(c *fiber.Ctx) (identity.User, bool) {
	user, ok := c.Locals(LocalsUser).(identity.User)
	return user, ok
}
