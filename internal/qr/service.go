package qr

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/nextmachines/fiuupay/internal/apperr"
    "github.com/nextmachines/fiuupay/internal/device"
    "github.com/nextmachines/fiuupay/internal/fiuu"
    "github.com/nextmachines/fiuupay/internal/logging"
    "github.com/nextmachines/fiuupay/internal/metrics"
    "github.com/nextmachines/fiuupay/internal/notification"
)

const (
    defaultListLimit = 50
    maxListLimit     = 200
)

// CredentialSource resolves the signing credentials of a user's device.
type CredentialSource interface {
    Credentials(ctx context.Context, userID, deviceID string) (device.Credentials, error)
}

// Profile is the fixed merchant profile sent with every precreate request.
type Profile struct {
    StoreID    string
    TerminalID string
    ChannelID  string
    Currency   string
    Version    string
}

// Options configures a Service.
type Options struct {
    Merchant device.Credentials
    Profile  Profile
    Notifier notification.Notifier
    Metrics  *metrics.Metrics
    Logger   *slog.Logger
}

// Service signs precreate requests, calls the gateway and records the results.
type Service struct {
    repo     Repository
    devices  CredentialSource
    gateway  fiuu.Gateway
    merchant device.Credentials
    profile  Profile
    notifier notification.Notifier
    metrics  *metrics.Metrics
    logger   *slog.Logger
    now      func() time.Time
}

// NewService constructs a QR payment service.
func NewService(repo Repository, devices CredentialSource, gateway fiuu.Gateway, opts Options) *Service {
    logger := opts.Logger
    if logger == nil {
        logger = logging.Discard()
    }
    return &Service{
        repo:     repo,
        devices:  devices,
        gateway:  gateway,
        merchant: opts.Merchant,
        profile:  opts.Profile,
        notifier: opts.Notifier,
        metrics:  opts.Metrics,
        logger:   logger,
        now:      func() time.Time { return time.Now().UTC() },
    }
}

// GenerateLink creates the payment at the gateway and returns its summary.
func (s *Service) GenerateLink(ctx context.Context, in GenerateInput) (Link, error) {
    payment, err := s.precreate(ctx, in)
    s.metrics.QR(outcome(err))
    if err != nil {
        return Link{}, err
    }
    return payment.link(), nil
}

// Generate creates the payment and downloads the rendered QR image.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (Image, error) {
    payment, err := s.precreate(ctx, in)
    if err != nil {
        s.metrics.QR(outcome(err))
        return Image{}, err
    }

    start := time.Now()
    img, err := s.gateway.FetchImage(ctx, payment.ImageURL)
    s.metrics.Gateway("fetch_image", err, time.Since(start))
    s.metrics.QR(outcome(err))
    if err != nil {
        return Image{}, fmt.Errorf("fetch qr image for %s: %w", payment.ReferenceID, err)
    }
    return Image{Link: payment.link(), Data: img.Data, ContentType: img.ContentType}, nil
}

// History returns the user's most recent payments.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Link, error) {
    if limit <= 0 {
        limit = defaultListLimit
    }
    if limit > maxListLimit {
        limit = maxListLimit
    }
    payments, err := s.repo.ListByUser(ctx, userID, limit)
    if err != nil {
        return nil, err
    }
    out := make([]Link, 0, len(payments))
    for _, p := range payments {
        out = append(out, p.link())
    }
    return out, nil
}

func (s *Service) precreate(ctx context.Context, in GenerateInput) (Payment, error) {
    amount, err := fiuu.FormatAmount(in.Amount)
    if err != nil {
        return Payment{}, err
    }

    creds, err := s.credentials(ctx, in)
    if err != nil {
        return Payment{}, err
    }
    signer, err := fiuu.NewSigner(creds.SecretKey)
    if err != nil {
        return Payment{}, err
    }

    req := fiuu.PrecreateRequest{
        Amount:          amount,
        ApplicationCode: creds.ApplicationCode,
        ChannelID:       s.profile.ChannelID,
        CurrencyCode:    s.profile.Currency,
        HashType:        fiuu.HashTypeHMACSHA256,
        ReferenceID:     fiuu.NewReferenceID(),
        StoreID:         s.profile.StoreID,
        TerminalID:      s.profile.TerminalID,
        Version:         s.profile.Version,
    }

    start := time.Now()
    resp, err := s.gateway.Precreate(ctx, req.Form(signer.Sign(req)))
    s.metrics.Gateway("precreate", err, time.Since(start))
    if err != nil {
        return Payment{}, fmt.Errorf("precreate %s: %w", req.ReferenceID, err)
    }

    payment := Payment{
        ID:                   uuid.New().String(),
        UserID:               in.UserID,
        DeviceID:             in.DeviceID,
        ReferenceID:          req.ReferenceID,
        Amount:               firstNonEmpty(resp.Amount.String(), amount),
        Currency:             firstNonEmpty(resp.CurrencyCode, req.CurrencyCode),
        GatewayTransactionID: resp.TransactionID.String(),
        GatewayStatus:        resp.StatusCode.String(),
        ImageURL:             resp.ImageURL,
        CreatedAt:            s.now(),
    }
    if err := s.repo.Create(ctx, payment); err != nil {
        return Payment{}, fmt.Errorf("record qr payment: %w", err)
    }

    if s.notifier != nil {
        msg := notification.Message{
            Kind:        notification.KindQRGenerated,
            Destination: in.UserID,
            Body:        fmt.Sprintf("QR %s created for %s %s", payment.ReferenceID, payment.Amount, payment.Currency),
        }
        if err := s.notifier.Send(ctx, msg); err != nil {
            s.logger.Warn("notification failed",
                slog.String("kind", msg.Kind),
                slog.String("reference_id", payment.ReferenceID),
                slog.Any("error", err),
            )
        }
    }
    return payment, nil
}

func (s *Service) credentials(ctx context.Context, in GenerateInput) (device.Credentials, error) {
    creds := s.merchant
    if in.DeviceID != "" {
        if s.devices == nil {
            return device.Credentials{}, fmt.Errorf("%w: device not found", apperr.ErrNotFound)
        }
        var err error
        creds, err = s.devices.Credentials(ctx, in.UserID, in.DeviceID)
        if err != nil {
            return device.Credentials{}, err
        }
    }
    if strings.TrimSpace(creds.ApplicationCode) == "" || strings.TrimSpace(creds.SecretKey) == "" {
        return device.Credentials{}, fmt.Errorf("%w: merchant credentials not set", apperr.ErrMisconfiguration)
    }
    return creds, nil
}

func outcome(err error) string {
    switch {
    case err == nil:
        return "ok"
    case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrNotFound):
        return "rejected"
    case errors.Is(err, apperr.ErrMisconfiguration):
        return "misconfigured"
    case errors.Is(err, apperr.ErrUpstream):
        return "upstream_error"
    default:
        return "error"
    }
}

func firstNonEmpty(values ...string) string {
    for _, v := range values {
        if v != "" {
            return v
        }
    }
    return ""
}
