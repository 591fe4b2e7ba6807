package notification

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    "github.com/redis/go-redis/v9"
)

const (
    // KindUserRegistered is sent after a merchant account is created.
    KindUserRegistered = "user_registered"
    // KindDeviceAdded is sent when a user stores a new device credential set.
    KindDeviceAdded = "device_added"
    // KindQRGenerated is sent once the gateway has accepted a precreate request.
    KindQRGenerated = "qr_generated"

    // DefaultChannel is the Redis pub/sub channel events are published on.
    DefaultChannel = "fiuupay:events"
)

// Message describes a notification payload. Bodies must never carry secrets.
type Message struct {
    Kind        string `json:"kind"`
    Destination string `json:"destination"`
    Body        string `json:"body"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
    Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
    logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
    return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
    if n == nil || n.logger == nil {
        return nil
    }
    n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
    return nil
}

// RedisPublisher publishes notifications as JSON on a Redis channel so other
// services (receipt printers, dashboards) can subscribe.
type RedisPublisher struct {
    client  *redis.Client
    channel string
}

// NewRedisPublisher builds a publisher; an empty channel uses DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
    if channel == "" {
        channel = DefaultChannel
    }
    return &RedisPublisher{client: client, channel: channel}
}

// Send publishes the message with a bounded timeout.
func (p *RedisPublisher) Send(ctx context.Context, message Message) error {
    if p == nil || p.client == nil {
        return nil
    }
    payload, err := json.Marshal(struct {
        Message
        SentAt time.Time `json:"sent_at"`
    }{Message: message, SentAt: time.Now().UTC()})
    if err != nil {
        return fmt.Errorf("encode notification: %w", err)
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
        return fmt.Errorf("publish notification: %w", err)
    }
    return nil
}

// Fanout delivers every message to all notifiers and joins their errors.
type Fanout []Notifier

// Send implements Notifier.
func (f Fanout) Send(ctx context.Context, message Message) error {
    var errs []error
    for _, n := range f {
        if n == nil {
            continue
        }
        if err := n.Send(ctx, message); err != nil {
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}
