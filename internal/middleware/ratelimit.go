package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/config"
	"github.com/ae97/panel/internal/session"
)

// takeToken refills the bucket at KEYS[1] for the whole intervals elapsed
// since its last refill, then tries to take one token.
// ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {taken, left, wait_ms}.
var takeToken = redis.NewScript(`
local b = redis.call('HMGET', KEYS[1], 't', 'at')
local now, cap, refill, every = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local left, at = tonumber(b[1]), tonumber(b[2])
if left == nil or at == nil then
  left, at = cap, now
end
local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
  left = math.min(cap, left + n * refill)
  at = at + n * every
end
local taken, wait = 0, 0
if left >= 1 then
  taken, left = 1, left - 1
else
  wait = every - (now - at)
end
redis.call('HSET', KEYS[1], 't', left, 'at', at)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {taken, left, wait}
`)

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket limits requests per key.  Auth form posts that are
// throttled get a flash and a redirect back to the form; anything else gets
// a 429 JSON body.  Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.SugaredLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	every := cfg.RefillInterval.Milliseconds()
	ttl := int64(cfg.TTL / time.Second)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, every, ttl).Int64Slice()
			if err != nil || len(res) != 3 {
				log.Warnw("rate limit check skipped", "key", key, "err", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res[0] == 1 {
				return next(c)
			}

			wait := retryAfter(res[2])
			h.Set("Retry-After", strconv.Itoa(wait))
			log.Infow("rate limited", "key", key, "wait_s", wait)
			if strings.HasPrefix(c.Path(), "/auth/") {
				session.FromContext(c).AddFlash(fmt.Sprintf("Error: Too many attempts, try again in %d seconds", wait))
				return c.Redirect(http.StatusFound, c.Path())
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests", "retry_after": wait})
		}
	}
}

// retryAfter rounds a millisecond wait up to whole seconds.
func retryAfter(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}

// buildRateKey scopes the bucket by client ip, session user and/or route
// depending on cfg.KeyStrategy; unknown strategies use all three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	scopes := map[string][]string{
		"ip":    {"ip", ip},
		"user":  {"user", userID(c)},
		"route": {"route", c.Request().Method + " " + c.Path()},
	}
	var use []string
	switch s := strings.ToLower(cfg.KeyStrategy); s {
	case "ip", "user", "route":
		use = []string{s}
	case "ip_user":
		use = []string{"ip", "user"}
	case "ip_route":
		use = []string{"ip", "route"}
	default:
		use = []string{"ip", "user", "route"}
	}
	key := []string{cfg.Prefix}
	for _, s := range use {
		key = append(key, scopes[s]...)
	}
	return strings.Join(key, ":")
}
