package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	sweepInterval = time.Minute
	clientMaxIdle = 10 * time.Minute
)

// clientRateLimiter keeps one token bucket per caller. Clients poll
// every 3-10 seconds; the limiter only has to stop tight retry loops,
// not shape normal traffic.
type clientRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	r       rate.Limit
	b       int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientRateLimiter(r rate.Limit, b int) *clientRateLimiter {
	l := &clientRateLimiter{
		clients: make(map[string]*clientEntry),
		r:       r,
		b:       b,
	}

	// Evict idle entries so the map stays bounded without resetting the
	// buckets of callers that are still active. The goroutine lives for
	// the life of the server.
	go func() {
		for range time.Tick(sweepInterval) {
			l.sweep(clientMaxIdle)
		}
	}()

	return l
}

func (l *clientRateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.clients[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// sweep drops clients not seen within maxIdle.
func (l *clientRateLimiter) sweep(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// RateLimit enforces a per-caller request rate. Authenticated callers
// are keyed by user id, everything else by client IP.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := newClientRateLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		key := c.GetString(ContextUserID)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.get(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
