package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyPrefix       = "fiuupay:idem:"
	idempotencyOpTimeout    = 2 * time.Second
	maxIdempotencyKeyLen    = 255
	pendingMarker           = "pending"
)

// Body is raw bytes so a PNG survives the JSON encoding.
type replayRecord struct {
	Status  int               `json:"status"`
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

type idempotencyStore struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func (s idempotencyStore) op() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), idempotencyOpTimeout)
}

// lookup returns the stored record, or nil when the key is unused.
func (s idempotencyStore) lookup(key string) (*replayRecord, error) {
	ctx, cancel := s.op()
	defer cancel()

	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	}
	if string(raw) == pendingMarker {
		return nil, fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	var rec replayRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("stored idempotent response unreadable", slog.String("key", key), slog.Any("error", err))
		return nil, fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	return &rec, nil
}

// reserve claims key; a concurrent claimer loses with 409.
func (s idempotencyStore) reserve(key string) error {
	ctx, cancel := s.op()
	defer cancel()

	ok, err := s.cache.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil {
		s.logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	}
	if !ok {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	return nil
}

func (s idempotencyStore) release(key string) {
	ctx, cancel := s.op()
	defer cancel()
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("idempotency release failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s idempotencyStore) save(key string, rec replayRecord) error {
	payload, err := json.Marshal(rec)
	if err == nil {
		ctx, cancel := s.op()
		err = s.cache.Set(ctx, key, payload, s.ttl).Err()
		cancel()
	}
	if err != nil {
		s.logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
		s.release(key)
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
	}
	return nil
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header, safe methods and a nil cache pass straight
// through. scope namespaces keys, typically by authenticated user. Failed
// and 5xx responses are not stored so the client may retry with the same key.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger, scope func(*fiber.Ctx) string) fiber.Handler {
	store := idempotencyStore{cache: cache, ttl: ttl, logger: logger}
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" || cache == nil {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		parts := []string{c.Path(), key}
		if scope != nil {
			parts = append([]string{scope(c)}, parts...)
		}
		cacheKey := idempotencyPrefix + strings.Join(parts, ":")

		rec, err := store.lookup(cacheKey)
		if err != nil {
			return err
		}
		if rec != nil {
			for header, value := range rec.Headers {
				if strings.EqualFold(header, fiber.HeaderContentLength) || strings.EqualFold(header, requestIDHeader) {
					continue
				}
				c.Set(header, value)
			}
			c.Set(idempotencyReplayHeader, "true")
			return c.Status(rec.Status).Send(rec.Body)
		}

		if err := store.reserve(cacheKey); err != nil {
			return err
		}
		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}

		resp := c.Response()
		if resp.StatusCode() >= fiber.StatusInternalServerError {
			store.release(cacheKey)
			return nil
		}
		rec = &replayRecord{
			Status:  resp.StatusCode(),
			Body:    append([]byte(nil), resp.Body()...),
			Headers: map[string]string{},
		}
		resp.Header.VisitAll(func(k, v []byte) {
			rec.Headers[string(k)] = string(v)
		})
		return store.save(cacheKey, *rec)
	}
}
