package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ClientLimiter allows each client IP a burst of requests that refills at a
// steady per-minute rate.
type ClientLimiter struct {
	burst     float64
	perSecond float64

	mu      sync.Mutex
	clients map[string]*allowance
	now     func() time.Time
}

type allowance struct {
	left float64
	seen time.Time
}

// NewClientLimiter limits each client to perMinute requests, with bursts of
// up to burst. burst <= 0 means perMinute.
func NewClientLimiter(perMinute, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &ClientLimiter{
		burst:     float64(burst),
		perSecond: float64(perMinute) / 60,
		clients:   make(map[string]*allowance),
		now:       time.Now,
	}
}

// Middleware rejects over-limit clients with 429. Paths listed in exempt pass
// through untouched.
func (l *ClientLimiter) Middleware(exempt ...string) gin.HandlerFunc {
	open := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		open[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := open[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		wait, ok := l.take(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// take spends one request for client. When none is left it returns the whole
// seconds until the next one is available.
func (l *ClientLimiter) take(client string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.clients[client]
	if !ok {
		a = &allowance{left: l.burst, seen: now}
		l.clients[client] = a
	}
	a.left = math.Min(l.burst, a.left+now.Sub(a.seen).Seconds()*l.perSecond)
	a.seen = now

	if a.left >= 1 {
		a.left--
		return 0, true
	}
	if l.perSecond <= 0 {
		return 60, false
	}
	return max(1, int(math.Ceil((1-a.left)/l.perSecond))), false
}
