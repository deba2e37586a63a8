package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time
}

// NewRateLimiter allows max requests per period for each client.
func NewRateLimiter(max int, period time.Duration) *RateLimiter {
	if max <= 0 {
		max = 30
	}
	if period <= 0 {
		period = time.Minute
	}
	return &RateLimiter{clients: make(map[string]*window), max: max, period: period, now: time.Now}
}

// Allow consumes one request for key and reports the remaining budget and reset time.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.period)}
		rl.clients[key] = w
	}
	if w.count >= rl.max {
		return false, 0, w.resetAt
	}
	w.count++
	return true, rl.max - w.count, w.resetAt
}

// Sweep drops expired windows until ctx is cancelled.
func (rl *RateLimiter) Sweep(ctx context.Context) {
	ticker := time.NewTicker(rl.period * 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.clients {
				if !now.Before(w.resetAt) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware rejects clients that exhausted their window with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, remaining, resetAt := rl.Allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			retry := int(resetAt.Sub(rl.now()).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			response.Error(c, appErrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
