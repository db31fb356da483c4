package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/happy-observatory/observatory/internal/infrastructure/ratelimit"
	"github.com/happy-observatory/observatory/internal/shared/biztime"
	"github.com/happy-observatory/observatory/internal/shared/constants"
	"github.com/happy-observatory/observatory/internal/shared/errors"
	"github.com/happy-observatory/observatory/internal/shared/logger"
	"github.com/happy-observatory/observatory/internal/shared/utils"
)

// RateLimitMiddleware guards a route group with one limiter.
type RateLimitMiddleware struct {
	limiter ratelimit.RateLimiter
	keyFunc KeyFunc
	logger  logger.Interface
}

func NewRateLimitMiddleware(limiter ratelimit.RateLimiter, keyFunc KeyFunc, log logger.Interface) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		keyFunc: keyFunc,
		logger:  log,
	}
}

const rateLimitMessage = "Rate limit exceeded. Please try again later."

// Limit sets the X-RateLimit-* headers on every response and rejects the
// request with 429 once the key is over its budget. When the limiter backend
// fails the request is let through with only X-RateLimit-Limit set.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := m.keyFunc(c)

		result, err := m.limiter.CheckLimit(c.Request.Context(), key)
		if err != nil {
			m.logger.Errorw("rate limiter unavailable, allowing request",
				"policy", m.limiter.Policy().Name,
				"key", key,
				"error", err,
			)
			c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(m.limiter.Policy().MaxRequests))
			c.Next()
			return
		}

		c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(result.Limit))
		c.Header(constants.HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
		c.Header(constants.HeaderRateLimitReset, strconv.FormatInt(result.ResetTime.Unix(), 10))

		if !result.Allowed {
			retryAfter := retryAfterSeconds(result.ResetTime, biztime.NowUTC())
			c.Header(constants.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))

			m.logger.Warnw("rate limit exceeded",
				"policy", m.limiter.Policy().Name,
				"key", key,
				"path", c.Request.URL.Path,
				"retry_after", retryAfter,
			)

			utils.TooManyRequestsResponse(c, errors.NewTooManyRequestsError(rateLimitMessage), retryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}

// retryAfterSeconds rounds the time left in the window up to whole seconds,
// never below one.
func retryAfterSeconds(resetTime, now time.Time) int64 {
	return max(int64(math.Ceil(resetTime.Sub(now).Seconds())), 1)
}
