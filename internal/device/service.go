package device

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/nextmachines/fiuupay/internal/apperr"
    "github.com/nextmachines/fiuupay/internal/logging"
    "github.com/nextmachines/fiuupay/internal/notification"
)

// Service manages merchant devices.
type Service struct {
    repo     Repository
    notifier notification.Notifier
    logger   *slog.Logger
}

// NewService builds a device service. A nil notifier disables events.
func NewService(repo Repository, notifier notification.Notifier, logger *slog.Logger) *Service {
    if logger == nil {
        logger = logging.Discard()
    }
    return &Service{repo: repo, notifier: notifier, logger: logger}
}

// AddInput captures data required to register a device.
type AddInput struct {
    Name            string
    ApplicationCode string
    SecretKey       string
}

// Add stores a new credential set for userID.
func (s *Service) Add(ctx context.Context, userID string, input AddInput) (Device, error) {
    input.Name = strings.TrimSpace(input.Name)
    input.ApplicationCode = strings.TrimSpace(input.ApplicationCode)
    input.SecretKey = strings.TrimSpace(input.SecretKey)

    switch {
    case userID == "":
        return Device{}, apperr.ErrUnauthorized
    case input.Name == "":
        return Device{}, apperr.Validation("name is required")
    case input.ApplicationCode == "":
        return Device{}, apperr.Validation("application_code is required")
    case input.SecretKey == "":
        return Device{}, apperr.Validation("secret_key is required")
    }

    device := Device{
        ID:              uuid.New().String(),
        UserID:          userID,
        Name:            input.Name,
        ApplicationCode: input.ApplicationCode,
        SecretKey:       input.SecretKey,
        CreatedAt:       time.Now().UTC(),
    }
    if err := s.repo.Create(ctx, device); err != nil {
        return Device{}, err
    }

    if s.notifier != nil {
        msg := notification.Message{
            Kind:        notification.KindDeviceAdded,
            Destination: userID,
            Body:        fmt.Sprintf("device %q registered", device.Name),
        }
        if err := s.notifier.Send(ctx, msg); err != nil {
            s.logger.Warn("notification failed",
                slog.String("kind", msg.Kind),
                slog.String("device_id", device.ID),
                slog.Any("error", err),
            )
        }
    }
    return device, nil
}

// List returns the user's devices without secrets.
func (s *Service) List(ctx context.Context, userID string) ([]Summary, error) {
    devices, err := s.repo.ListByUser(ctx, userID)
    if err != nil {
        return nil, err
    }
    out := make([]Summary, 0, len(devices))
    for _, d := range devices {
        out = append(out, d.Summary())
    }
    return out, nil
}

// Credentials returns the signing credentials of a device owned by userID.
func (s *Service) Credentials(ctx context.Context, userID, deviceID string) (Credentials, error) {
    device, err := s.repo.Get(ctx, userID, deviceID)
    if err != nil {
        if errors.Is(err, ErrNotFound) {
            return Credentials{}, fmt.Errorf("%w: device not found", apperr.ErrNotFound)
        }
        return Credentials{}, err
    }
    return Credentials{ApplicationCode: device.ApplicationCode, SecretKey: device.SecretKey}, nil
}
