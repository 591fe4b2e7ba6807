package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

// ErrorHandler renders every error as {"error": "..."}. fiber errors keep their
// code and message; domain errors are classified through apperr. Upstream
// failures carry the gateway response under "detail".
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		status := apperr.Status(err)
		body := fiber.Map{"error": apperr.Message(err)}

		var upstream *apperr.UpstreamError
		if errors.As(err, &upstream) {
			body["detail"] = upstream.Detail
			if upstream.Status != 0 {
				body["upstream_status"] = upstream.Status
			}
		}

		if status >= http.StatusInternalServerError {
			requestID := RequestIDFrom(c)
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", requestID),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(body)
	}
}
