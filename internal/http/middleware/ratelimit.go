package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"todo_api/internal/logger"
	"todo_api/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Limiter decides whether key may make one more request in its current window.
// An error means the decision could not be made; callers fail open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit blocks clients (by IP) that exceed the limiter's budget.
func RateLimit(l Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()

		allowed, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Header("X-RateLimit-Error", "limiter-error")
			c.Next()
			return
		}
		if !allowed {
			m.RLBlocked.WithLabelValues(endpoint).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded"})
			return
		}

		m.RLRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}

type clientInfo struct {
	start time.Time
	count int
}

// MemoryLimiter is a fixed-window limiter for a single process.
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	clients map[string]*clientInfo
	now     func() time.Time
}

func NewMemoryLimiter(maxRequests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     maxRequests,
		window:  window,
		clients: make(map[string]*clientInfo),
		now:     time.Now,
	}
}

const sweepThreshold = 10000

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= sweepThreshold {
		l.sweep(now)
	}

	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) >= l.window {
		l.clients[key] = &clientInfo{start: now, count: 1}
		return l.max >= 1, nil
	}
	ci.count++
	return ci.count <= l.max, nil
}

// sweep drops clients whose window has expired. Caller holds mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, ci := range l.clients {
		if now.Sub(ci.start) >= l.window {
			delete(l.clients, k)
		}
	}
}
