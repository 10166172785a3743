package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-evidence-api/internal/observability"
	"github.com/noah-isme/gema-evidence-api/internal/utils"
)

const (
	defaultRateMax    = 30
	defaultRateWindow = time.Minute
)

// RateLimit throttles a route group per authenticated learner, falling back to
// the client IP for anonymous callers such as host hooks. scope labels both the
// limiter key and the evidence_rate_limited_total counter.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = defaultRateMax
	}
	if window <= 0 {
		window = defaultRateWindow
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return rateLimitKey(scope, c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited().WithLabelValues(scope).Inc()
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests", fiber.Map{
				"scope":               scope,
				"retry_after_seconds": int(window.Seconds()),
			})
		},
	})
}

func rateLimitKey(scope string, c *fiber.Ctx) string {
	switch id := c.Locals("user_id").(type) {
	case uint:
		if id > 0 {
			return fmt.Sprintf("%s:user:%d", scope, id)
		}
	case int:
		if id > 0 {
			return fmt.Sprintf("%s:user:%d", scope, id)
		}
	}
	return fmt.Sprintf("%s:ip:%s", scope, c.IP())
}
