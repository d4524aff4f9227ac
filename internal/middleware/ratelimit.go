package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/symptom-risk-server/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter hands out one token bucket per client IP. Idle clients age out of
// a bounded cache so the limiter's memory stays flat under address churn.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter builds a limiter allowing rps requests per second with the given burst
func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
	}
}

// Allow reports whether the client may make a request now
func (r *RateLimiter) Allow(client string) bool {
	r.mu.Lock()
	limiter, ok := r.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
	}
	// Re-adding refreshes the idle TTL
	r.limiters.Add(client, limiter)
	r.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects over-limit requests with 429
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewServiceError(
				domain.CodeRateLimit, "too many requests", nil, RequestID(c)))
			return
		}
		c.Next()
	}
}
