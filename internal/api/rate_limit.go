package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/pixelgen/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RateLimiter interface {
	Allow(ctx context.Context, subject string) (ratelimit.Decision, error)
}

// withRateLimit rejects requests over the per-subject budget with 429. A
// failing limiter lets the request through.
func (s *Server) withRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil {
			c.Next()
			return
		}

		route := routeLabel(c)
		subject := strings.TrimSpace(c.GetHeader(s.rateLimitHeader))
		if subject == "" {
			subject = "anonymous"
		}
		subject = subject + ":" + route

		decision, err := s.rateLimiter.Allow(c.Request.Context(), subject)
		if err != nil {
			s.logger.Warn("rate limiter check failed", zap.String("subject", subject), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := max(int(decision.RetryAfter.Round(time.Second).Seconds()), 1)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		s.metrics.rateLimitRejected.WithLabelValues(route).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}
