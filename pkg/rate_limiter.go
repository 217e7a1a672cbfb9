package pkg

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimiter allows one request per client per interval.
type RateLimiter struct {
	lastRequest map[string]time.Time
	interval    time.Duration
	logger      *logrus.Logger
	mu          sync.Mutex
}

func NewRateLimiter(interval time.Duration, logger *logrus.Logger) *RateLimiter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RateLimiter{
		lastRequest: make(map[string]time.Time),
		interval:    interval,
		logger:      logger,
	}
}

// Allow records a request from client and reports whether it is within the
// limit. A zero interval allows everything.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.interval <= 0 {
		return true
	}
	if client == "::1" || client == "127.0.0.1" {
		client = "localhost"
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if last, exists := rl.lastRequest[client]; exists && now.Sub(last) < rl.interval {
		return false
	}
	rl.lastRequest[client] = now

	// prune stale clients once the map gets large
	if len(rl.lastRequest) > 4096 {
		for k, t := range rl.lastRequest {
			if now.Sub(t) >= rl.interval {
				delete(rl.lastRequest, k)
			}
		}
	}
	return true
}

// Limit is the gin middleware form of Allow.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if !rl.Allow(client) {
			rl.logger.WithField("client", client).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}
