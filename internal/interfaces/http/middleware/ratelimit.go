package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/YKLee98/naver-sub003/internal/interfaces/http/dto"
)

// RateLimiter hands out one token bucket per client key.
// Idle buckets expire from the cache after two windows.
type RateLimiter struct {
	limit   int
	window  time.Duration
	every   rate.Limit
	buckets *gocache.Cache
}

// NewRateLimiter allows limit requests per window per client
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		every:   rate.Every(window / time.Duration(limit)),
		buckets: gocache.New(window*2, window*4),
	}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		l := v.(*rate.Limiter)
		rl.buckets.SetDefault(key, l)
		return l
	}
	l := rate.NewLimiter(rl.every, rl.limit)
	// Add loses to a concurrent creator; take theirs
	if err := rl.buckets.Add(key, l, gocache.DefaultExpiration); err != nil {
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// Allow takes a token for key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.bucket(key).Allow()
}

// Remaining returns the whole tokens left for key
func (rl *RateLimiter) Remaining(key string) int {
	v, ok := rl.buckets.Get(key)
	if !ok {
		return rl.limit
	}
	return int(math.Max(0, math.Floor(v.(*rate.Limiter).Tokens())))
}

// RateLimit returns a rate limiting middleware keyed by client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limiter.window.Seconds()/float64(limiter.limit)))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
