package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yanqian/carefinder/internal/infra/config"
)

const limiterIdleTTL = 10 * time.Minute

func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newClientLimiters(cfg.RequestsPerMinute, cfg.Burst)
	return func(c *gin.Context) {
		// A replay was already admitted as its first attempt.
		if isReplay(c.Request) {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if limiters.allow(ip, time.Now()) {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
		c.Header("Retry-After", "60")
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

// clientLimiters keeps one token bucket per client address. Buckets idle for
// longer than limiterIdleTTL are dropped during a sweep.
type clientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(perMinute, burst int) *clientLimiters {
	if burst <= 0 {
		burst = perMinute
	}
	return &clientLimiters{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *clientLimiters) allow(key string, now time.Time) bool {
	l.mu.Lock()
	entry, ok := l.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		l.sweepLocked(now)
	}
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (l *clientLimiters) sweepLocked(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}
