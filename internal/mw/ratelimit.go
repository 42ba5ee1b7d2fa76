package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyedLimiter hands out one token bucket per key, created on first use.
type keyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newKeyedLimiter(limit rate.Limit, burst int) *keyedLimiter {
	return &keyedLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

func (k *keyedLimiter) limiterFor(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	limiter, ok := k.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(k.limit, k.burst)
		k.buckets[key] = limiter
	}
	return limiter
}

// RateLimiter throttles requests per client IP. It runs ahead of token
// validation, so the key is the network peer rather than the principal.
func RateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	limiters := newKeyedLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiters.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
