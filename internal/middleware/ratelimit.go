// Package middleware holds the HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spatix/spatix/internal/metrics"
)

// Limiter decides whether a client identity may proceed. It is injected so
// the in-process window can be swapped for a distributed limiter without
// touching the handlers behind it.
type Limiter interface {
	Allow(key string) bool
}

// SlidingWindow is a per-key sliding-window counter: at most max events per
// window per key. Old entries are pruned on each check.
type SlidingWindow struct {
	max    int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewSlidingWindow creates a limiter allowing max events per window.
func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records the event and reports whether the key is within budget.
func (l *SlidingWindow) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.hits[key] = recent
		return false
	}

	l.hits[key] = append(recent, now)
	return true
}

// RateLimit rejects requests whose client IP exceeds the limiter's budget.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			metrics.RateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
