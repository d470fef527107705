package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	Burst             int
}

// DefaultConfig returns default rate limiting configuration. Uploads are
// interactive and team-sized, so the limits are generous.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 30,
		Burst:             10,
	}
}

// Limiter provides in-memory per-IP rate limiting.
type Limiter struct {
	config Config

	mu       sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a rate limiter and starts its idle-entry cleanup loop.
func New(config Config) *Limiter {
	l := &Limiter{
		config:   config,
		limiters: make(map[string]*entry),
	}

	go l.cleanup()

	return l
}

// Allow reports whether the given IP may proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[ip]
	if !ok {
		perSecond := rate.Limit(float64(l.config.RequestsPerMinute) / 60.0)
		e = &entry{limiter: rate.NewLimiter(perSecond, l.config.Burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = time.Now()

	return e.limiter.Allow()
}

// cleanup drops limiters for IPs not seen recently.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		l.mu.Lock()
		for ip, e := range l.limiters {
			if e.lastSeen.Before(cutoff) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Size returns the number of tracked IPs.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Middleware returns a Gin middleware enforcing the per-IP limit.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", l.config.RequestsPerMinute))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, try again shortly",
			})
			return
		}
		c.Next()
	}
}
