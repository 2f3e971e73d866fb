package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyPrefix namespaces the counters; defaults to "rate_limit".
	KeyPrefix string
}

// RateLimiterMiddleware is a fixed-window limiter keyed by client IP. It
// fails open: when Redis is unavailable requests are let through.
func RateLimiterMiddleware(rdb *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rate_limit"
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, c.ClientIP())

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, cfg.Window)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			log.Printf("[RATE] Redis error, limiter skipped: %v", err)
			c.Next()
			return
		}

		count := incr.Val()
		remaining := ttl.Val()
		if remaining <= 0 {
			remaining = cfg.Window
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(cfg.Limit)-count), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(remaining).Unix(), 10))

		if count > int64(cfg.Limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":     "error",
				"message":    "Too many requests. Slow down!",
				"retry_in_s": int(remaining.Seconds()),
			})
			return
		}

		c.Next()
	}
}
