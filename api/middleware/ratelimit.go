package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smartsite/sitehealth/internal/ratelimit"
)

// RateLimit rejects over-limit requests per client IP with a 429. Used
// on the admin and auth surface; the tracking endpoints consult their
// limiters inside the handlers instead, because those always answer 200.
func RateLimit(limiter *ratelimit.RateLimiter, retryAfter int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		if !limiter.ShouldAllowRequest(key) {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.GetRemainingRequests(key)))
		c.Next()
	}
}
