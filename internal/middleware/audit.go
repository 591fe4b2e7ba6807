package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

// Audit emits structured logs for each request/response lifecycle event.
// Tokens, passwords and merchant secrets are never part of the record.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := statusOf(c, err)
		duration := time.Since(start)
		requestID := RequestIDFrom(c)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if userID, ok := UserID(c); ok {
			attrs = append(attrs, slog.String("user_id", userID))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", apperr.Message(err)))
			if status >= http.StatusInternalServerError {
				logger.Error("request completed", attrs...)
			} else {
				logger.Warn("request completed", attrs...)
			}
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}

// statusOf predicts the status the error handler will write for err.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.Status(err)
}
