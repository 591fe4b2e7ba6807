package middleware

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/gofiber/fiber/v2"

    "github.com/nextmachines/fiuupay/internal/apperr"
    "github.com/nextmachines/fiuupay/internal/auth"
    "github.com/nextmachines/fiuupay/internal/identity"
)

// legacyTokenHeader carries the raw token for clients that do not send Authorization.
const legacyTokenHeader = "token"

// Authorizer resolves a bearer token to the user it was issued for.
type Authorizer interface {
    Authorize(ctx context.Context, token string) (identity.User, error)
}

// BearerAuth rejects requests without a valid token and stores the user in locals.
func BearerAuth(authz Authorizer) fiber.Handler {
    return func(c *fiber.Ctx) error {
        token := bearerToken(c)
        if token == "" {
            return fiber.NewError(http.StatusUnauthorized, "Invalid token")
        }

        user, err := authz.Authorize(c.UserContext(), token)
        if err != nil {
            switch {
            case errors.Is(err, apperr.ErrExpired):
                return fiber.NewError(http.StatusUnauthorized, "Token expired")
            case errors.Is(err, apperr.ErrUnauthorized):
                return fiber.NewError(http.StatusUnauthorized, "Invalid token")
            case errors.Is(err, apperr.ErrUserNotFound):
                return fiber.NewError(http.StatusNotFound, "User not found")
            default:
                return err
            }
        }

        c.Locals(auth.LocalsUser, user)
        c.Locals("user_id", user.ID)
        return c.Next()
    }
}

// UserID returns the id of the user stored by BearerAuth.
func UserID(c *fiber.Ctx) (string, bool) {
    id, ok := c.Locals("user_id").(string)
    return id, ok && id != ""
}

func bearerToken(c *fiber.Ctx) string {
    authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
    if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
        return strings.TrimSpace(authz[len("bearer "):])
    }
    return strings.TrimSpace(c.Get(legacyTokenHeader))
}
