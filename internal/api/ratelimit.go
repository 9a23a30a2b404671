package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter решает, пропустить ли очередной запрос по ключу
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// LocalLimiter лимит на процесс: по одному rate.Limiter на ключ
type LocalLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*localEntry
	perMin    int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Ведро полностью восполняется за минуту, после этого ключ можно забыть
const localIdleTTL = 2 * time.Minute

func NewLocalLimiter(perMinute int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		perMin:   perMinute,
		idle:     localIdleTTL,
		now:      time.Now,
	}
}

func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin),
		}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep удаляет ключи без запросов дольше idle, вызывается под l.mu
func (l *LocalLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idle {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// size количество отслеживаемых ключей
func (l *LocalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	r := l.get(key).Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}

// Ведро токенов в Redis: общий лимит для всех реплик
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals)
    last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, retry_after_ms }
`)

// RedisLimiter общий лимит через Redis. При недоступности Redis работает локальный.
type RedisLimiter struct {
	rdb      *redis.Client
	prefix   string
	perMin   int
	fallback *LocalLimiter
	logger   *zap.Logger
}

func NewRedisLimiter(rdb *redis.Client, perMinute int, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		rdb:      rdb,
		prefix:   "rl:booking",
		perMin:   perMinute,
		fallback: NewLocalLimiter(perMinute),
		logger:   logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	interval := time.Minute / time.Duration(l.perMin)
	args := []interface{}{
		time.Now().UnixMilli(),
		l.perMin,
		interval.Milliseconds(),
		int64((5 * time.Minute) / time.Second),
	}

	vals, err := tokenBucket.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, args...).Int64Slice()
	if err != nil || len(vals) != 2 {
		l.logger.Warn("Redis rate limiter unavailable, using local limiter",
			zap.String("key", key),
			zap.Error(err),
		)
		return l.fallback.Allow(ctx, key)
	}

	return vals[0] == 1, time.Duration(vals[1]) * time.Millisecond, nil
}

// rateLimit ограничивает частоту запросов с одного IP
func rateLimit(limiter Limiter, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}

			allowed, retryAfter, err := limiter.Allow(c.Request().Context(), ip)
			if err != nil {
				logger.Warn("Rate limiter failed", zap.String("ip", ip), zap.Error(err))
				return next(c)
			}

			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				logger.Warn("Rate limit exceeded", zap.String("ip", ip))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     fmt.Sprintf("rate limit exceeded, retry in %d s", secs),
					"retry_after": secs,
				})
			}

			return next(c)
		}
	}
}
