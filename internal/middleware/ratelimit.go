package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation-service/internal/config"
)

// takeToken refills the bucket by whole intervals since the last refill,
// then tries to take one token.
//
//	KEYS[1] bucket key
//	ARGV    now_ms, capacity, refill_tokens, interval_ms, ttl_s
//	returns {allowed (0|1), tokens left, ms until the next refill}
var takeToken = redis.NewScript(`
local now, cap, refill, every, ttl =
	tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last = tonumber(redis.call('HGET', KEYS[1], 'last_ms'))
if tokens == nil or last == nil then
	tokens, last = cap, now
end

local steps = math.floor(math.max(0, now - last) / every)
if steps > 0 then
	tokens = math.min(cap, tokens + steps * refill)
	last = last + steps * every
end

local allowed, wait = 0, 0
if tokens > 0 then
	allowed, tokens = 1, tokens - 1
else
	wait = math.max(0, every - (now - last))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_ms', last)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

// NewTokenBucket limits reservation traffic with a token bucket kept in
// Redis, so every instance of the service draws from the same budget.
// Buckets are keyed by cfg.KeyStrategy (see rateKey).  When the limiter is
// disabled, or Redis is missing or failing, requests pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				log.WithError(err).WithField("key", key).Warn("ratelimit: bucket unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res[0] == 1 {
				return next(c)
			}

			retry := int(math.Ceil(float64(res[2]) / 1000))
			h.Set("Retry-After", strconv.Itoa(retry))
			if cfg.Debug {
				log.WithFields(logrus.Fields{"key": key, "retry_ms": res[2]}).Info("ratelimit: blocked")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded", "retry_after": retry})
		}
	}
}

// rateKey builds the bucket key for a request:
//
//	ip               one bucket per client address
//	user             one bucket per caller
//	restaurant       one bucket per restaurant in the path, so all owner and
//	                 diner traffic against a restaurant shares a budget;
//	                 /user routes fall back to the caller
//	user_restaurant  one bucket per caller and restaurant (default)
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	restaurant := c.Param("restaurantId")
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		parts = []string{"ip", ip}
	case "user":
		parts = []string{"user", currentUserID(c)}
	case "restaurant":
		if restaurant == "" {
			parts = []string{"user", currentUserID(c)}
		} else {
			parts = []string{"restaurant", restaurant}
		}
	default:
		if restaurant == "" {
			restaurant = "-"
		}
		parts = []string{"user", currentUserID(c), "restaurant", restaurant}
	}
	return cfg.Prefix + ":" + strings.Join(parts, ":")
}

// currentUserID reads the id set by Authorize.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
