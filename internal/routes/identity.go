package routes

import (
    "fmt"
    "log/slog"
    "net/http"
    "strings"

    "github.com/gofiber/fiber/v2"

    "github.com/nextmachines/fiuupay/internal/apperr"
    "github.com/nextmachines/fiuupay/internal/device"
    "github.com/nextmachines/fiuupay/internal/identity"
    "github.com/nextmachines/fiuupay/internal/notification"
)

const defaultDeviceName = "default"

// RegisterIdentityRoutes wires merchant registration. When the body carries
// application_code and secret_key a "default" device is provisioned with them.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, devices *device.Service, notifier notification.Notifier, logger *slog.Logger) {
    r.Post("/register", func(c *fiber.Ctx) error {
        var req struct {
            Username        string `json:"username"`
            Password        string `json:"password"`
            CompanyName     string `json:"company_name"`
            Address         string `json:"address"`
            Phone           string `json:"phone"`
            ApplicationCode string `json:"application_code"`
            SecretKey       string `json:"secret_key"`
        }
        if err := c.BodyParser(&req); err != nil {
            return apperr.Validation("invalid request body")
        }
        user, err := ids.Register(c.UserContext(), identity.Registration{
            Username:    req.Username,
            Password:    req.Password,
            CompanyName: req.CompanyName,
            Address:     req.Address,
            Phone:       req.Phone,
        })
        if err != nil {
            return err
        }

        var deviceID string
        if devices != nil && strings.TrimSpace(req.ApplicationCode) != "" && strings.TrimSpace(req.SecretKey) != "" {
            d, err := devices.Add(c.UserContext(), user.ID, device.AddInput{
                Name:            defaultDeviceName,
                ApplicationCode: req.ApplicationCode,
                SecretKey:       req.SecretKey,
            })
            if err != nil {
                logger.Warn("register: default device not created", slog.String("user_id", user.ID), slog.Any("error", err))
            } else {
                deviceID = d.ID
            }
        }

        if notifier != nil {
            msg := notification.Message{
                Kind:        notification.KindUserRegistered,
                Destination: user.ID,
                Body:        fmt.Sprintf("merchant %s registered", user.Username),
            }
            if err := notifier.Send(c.UserContext(), msg); err != nil {
                logger.Warn("notification failed",
                    slog.String("kind", msg.Kind),
                    slog.String("user_id", user.ID),
                    slog.Any("error", err),
                )
            }
        }
        logger.Info("identity.register completed",
            slog.String("user_id", user.ID),
            slog.String("username", user.Username),
            slog.Int("status", http.StatusCreated),
        )

        resp := fiber.Map{
            "message": fmt.Sprintf("User %s registered successfully", user.Username),
            "user_id": user.ID,
        }
        if deviceID != "" {
            resp["device_id"] = deviceID
        }
        return c.Status(http.StatusCreated).JSON(resp)
    })
}
