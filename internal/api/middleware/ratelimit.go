package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	apierrors "github.com/feral-file/ff-marketplace/internal/api/shared/errors"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

const (
	DEFAULT_RATE_LIMIT_KEY_PREFIX = "ratelimit:api:"
	// maxLocalLimiters bounds the per-client limiters kept in memory
	maxLocalLimiters = 10000
)

// RateLimitConfig holds the per-client request budget
type RateLimitConfig struct {
	Requests  int
	Period    time.Duration
	KeyPrefix string
}

// localLimiters is the in-process limiter used without Redis or while Redis fails
type localLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLocalLimiters(cfg RateLimitConfig) *localLimiters {
	return &localLimiters{
		limit:    rate.Every(cfg.Period / time.Duration(cfg.Requests)),
		burst:    cfg.Requests,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxLocalLimiters {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter.Allow()
}

// RateLimit returns a gin middleware limiting requests per client IP.
// The budget is shared across API instances through Redis; a nil limiter or a Redis failure
// falls back to a per-instance budget.
func RateLimit(cfg RateLimitConfig, limiter adapter.RedisRateLimiter) gin.HandlerFunc {
	if cfg.Requests <= 0 || cfg.Period <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DEFAULT_RATE_LIMIT_KEY_PREFIX
	}

	limit := redis_rate.Limit{Rate: cfg.Requests, Burst: cfg.Requests, Period: cfg.Period}
	local := newLocalLimiters(cfg)

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + c.ClientIP()
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))

		if limiter != nil {
			res, err := limiter.Allow(c.Request.Context(), key, limit)
			if err == nil {
				c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
				if res.Allowed == 0 {
					tooManyRequests(c, res.RetryAfter)
					return
				}
				c.Next()
				return
			}
			logger.Warn("Redis rate limiter error, falling back to local", zap.Error(err))
		}

		if !local.allow(key) {
			tooManyRequests(c, cfg.Period/time.Duration(cfg.Requests))
			return
		}
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, apierrors.ErrorResponse{
		Error: apierrors.NewRateLimitedError("Too many requests"),
	})
}
