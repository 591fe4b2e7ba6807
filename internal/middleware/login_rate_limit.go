package middleware

import (
    "context"
    "net/http"
    "strings"
    "sync"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/redis/go-redis/v9"
    "golang.org/x/time/rate"

    "github.com/nextmachines/fiuupay/internal/metrics"
)

const maxLocalLimiters = 10_000

// LoginRateLimit limits login attempts per username or IP. Redis counters are
// shared across instances; without Redis a per-process token bucket is used.
func LoginRateLimit(cache *redis.Client, maxPerMin int, m *metrics.Metrics) fiber.Handler {
    if maxPerMin <= 0 {
        maxPerMin = 5
    }
    local := newLocalLimiter(maxPerMin)
    return func(c *fiber.Ctx) error {
        var req struct{ Username string `json:"username"` }
        _ = c.BodyParser(&req)
        subject := strings.ToLower(strings.TrimSpace(req.Username))
        if subject == "" {
            subject = c.IP()
        }

        allowed := true
        if cache == nil {
            allowed = local.allow(subject)
        } else if cnt, err := incrWindow(c.UserContext(), cache, "rl:login:"+subject); err != nil {
            allowed = local.allow(subject) // degrade to local limits on cache errors
        } else {
            allowed = cnt <= int64(maxPerMin)
        }

        if !allowed {
            m.Login("limited")
            return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
        }
        return c.Next()
    }
}

// incrWindow bumps the per-minute counter at key. The window is (re)armed
// whenever the key has no TTL so a failed EXPIRE cannot lock a user out.
func incrWindow(ctx context.Context, cache *redis.Client, key string) (int64, error) {
    var (
        incr *redis.IntCmd
        ttl  *redis.DurationCmd
    )
    if _, err := cache.TxPipelined(ctx, func(p redis.Pipeliner) error {
        incr = p.Incr(ctx, key)
        ttl = p.TTL(ctx, key)
        return nil
    }); err != nil {
        return 0, err
    }
    if ttl.Val() < 0 {
        if err := cache.Expire(ctx, key, time.Minute).Err(); err != nil {
            return 0, err
        }
    }
    return incr.Val(), nil
}

type localLimiter struct {
    mu       sync.Mutex
    perMin   int
    limiters map[string]*rate.Limiter
}

func newLocalLimiter(perMin int) *localLimiter {
    return &localLimiter{perMin: perMin, limiters: make(map[string]*rate.Limiter)}
}

func (l *localLimiter) allow(subject string) bool {
    l.mu.Lock()
    lim, ok := l.limiters[subject]
    if !ok {
        if len(l.limiters) >= maxLocalLimiters {
            l.limiters = make(map[string]*rate.Limiter)
        }
        lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
        l.limiters[subject] = lim
    }
    l.mu.Unlock()
    return lim.Allow()
}
