package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimit returns the limiter the service runs with: one bucket per client
// IP when perIP is set, otherwise one bucket shared by all clients.
func RateLimit(perIP bool, rps, burst int, logger *zap.Logger) gin.HandlerFunc {
	if perIP {
		return IPRateLimitMiddleware(NewIPRateLimiter(rate.Limit(rps), burst), logger)
	}
	return RateLimitMiddleware(rate.NewLimiter(rate.Limit(rps), burst), logger)
}

// Probes and scrapes are never throttled.
func exempt(path string) bool {
	return path == "/health" || path == "/metrics"
}

// RateLimitMiddleware limits the whole API to one shared token bucket.
func RateLimitMiddleware(limiter *rate.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		if !limiter.Allow() {
			logger.Warn("rate limit blocked request",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "please try again later",
			})
			return
		}

		c.Next()
	}
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

func IPRateLimitMiddleware(ipLimiter *IPRateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !ipLimiter.GetLimiter(ip).Allow() {
			logger.Warn("per-IP rate limit blocked request",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded for your IP",
				"message": "please try again in a few seconds",
			})
			return
		}

		c.Next()
	}
}
