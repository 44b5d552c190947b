package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
	// Redis shares the limit between instances. When nil every instance
	// keeps its own in-memory limiters.
	Redis *redis.Client
}

type limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// memoryLimiter keeps a token bucket per client. Buckets idle for longer
// than ttl are dropped, at most once per interval, while serving requests.
type memoryLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       int
	burst     int
	ttl       time.Duration
	interval  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newMemoryLimiter(cfg RateLimiterConfig) *memoryLimiter {
	return &memoryLimiter{
		visitors:  make(map[string]*visitor),
		rps:       cfg.RequestsPerSecond,
		burst:     cfg.Burst,
		ttl:       cfg.TTL,
		interval:  cfg.CleanupInterval,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.interval {
		l.sweep(now)
	}

	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.visitors[key] = v
	}

	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

func (l *memoryLimiter) sweep(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}

	l.lastSweep = now
}

// redisLimiter counts requests per client in one second windows
type redisLimiter struct {
	rdb   *redis.Client
	limit int64
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "ratelimit:" + key + ":" + strconv.FormatInt(time.Now().Unix(), 10)

	var count *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, time.Second*2)
		return nil
	})
	if err != nil {
		return false, err
	}

	return count.Val() <= l.limit, nil
}

// RateLimiterMiddleware limits requests per client IP. A non-positive
// RequestsPerSecond disables limiting.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	if config.Burst < config.RequestsPerSecond {
		config.Burst = config.RequestsPerSecond
	}

	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}

	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}

	var l limiter
	if config.Redis != nil {
		l = &redisLimiter{rdb: config.Redis, limit: int64(config.Burst)}
	} else {
		l = newMemoryLimiter(config)
	}

	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis being down shouldn't take the API with it
			zap.L().Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
