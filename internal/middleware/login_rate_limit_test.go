package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func loginApp(cache *redis.Client, limit int) *fiber.App {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, limit, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func attempt(t *testing.T, app *fiber.App, username string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"`+username+`","password":"x"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestLoginRateLimitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := loginApp(cache, 2)
	for i := 0; i < 2; i++ {
		if got := attempt(t, app, "alice"); got != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, got)
		}
	}
	if got := attempt(t, app, "alice"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", got)
	}
	if got := attempt(t, app, "bob"); got != http.StatusOK {
		t.Fatalf("limits must be per user, got %d for bob", got)
	}
	if ttl := mr.TTL("rl:login:alice"); ttl <= 0 {
		t.Fatalf("expected counter to expire, ttl=%s", ttl)
	}
}

func TestLoginRateLimitRearmsCounterWithoutTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	// A counter left behind without an expiry.
	if err := mr.Set("rl:login:carol", "7"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	app := loginApp(cache, 2)
	if got := attempt(t, app, "carol"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while counter is over limit, got %d", got)
	}
	if ttl := mr.TTL("rl:login:carol"); ttl <= 0 {
		t.Fatalf("expected stuck counter to get an expiry, ttl=%s", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if got := attempt(t, app, "carol"); got != http.StatusOK {
		t.Fatalf("expected login allowed after window, got %d", got)
	}
}

func TestLoginRateLimitCacheDownUsesLocalLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer cache.Close()
	mr.Close()

	app := loginApp(cache, 1)
	if got := attempt(t, app, "dave"); got != http.StatusOK {
		t.Fatalf("first attempt: expected 200, got %d", got)
	}
	if got := attempt(t, app, "dave"); got != http.StatusTooManyRequests {
		t.Fatalf("expected local limiter to reject, got %d", got)
	}
}

func TestLoginRateLimitLocalFallback(t *testing.T) {
	app := loginApp(nil, 3)
	for i := 0; i < 3; i++ {
		if got := attempt(t, app, "Alice"); got != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, got)
		}
	}
	if got := attempt(t, app, "alice"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", got)
	}
}
