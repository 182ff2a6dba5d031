package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// WindowLimiter is an in-memory per-IP fixed-window rate limiter. Counters
// reset when their window elapses; state is per-process, which matches the
// single-instance deployment.
type WindowLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	state map[string]*windowState
}

type windowState struct {
	count   int
	resetAt time.Time
}

// NewWindowLimiter creates a limiter allowing max requests per window per
// client IP. A nil now defaults to time.Now.
func NewWindowLimiter(max int, window time.Duration, now func() time.Time) *WindowLimiter {
	if now == nil {
		now = time.Now
	}
	return &WindowLimiter{
		max:    max,
		window: window,
		now:    now,
		state:  make(map[string]*windowState),
	}
}

// GinMiddleware returns a gin handler enforcing the per-IP limit.
func (l *WindowLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// Allow counts one request for key and reports whether it is within budget.
func (l *WindowLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.state[key]
	if !ok || now.After(st.resetAt) {
		st = &windowState{resetAt: now.Add(l.window)}
		l.state[key] = st
	}
	st.count++
	return st.count <= l.max
}
