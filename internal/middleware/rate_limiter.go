package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ── API rate limiter ──────────────────────────────────────────────────────────
// Fixed window per client IP. The counter lives in Redis so every replica
// shares it; when Redis is unreachable the limiter falls back to a
// process-local window instead of rejecting traffic.

const rateKeyPrefix = "ratelimit:caja:"

type rateEntry struct {
	count     int
	windowEnd time.Time
}

type rateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration

	mu    sync.Mutex
	local map[string]*rateEntry
}

// RateLimiter allows limit requests per window per IP. rdb may be nil.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{rdb: rdb, limit: limit, window: window, local: make(map[string]*rateEntry)}
	return rl.handle
}

func (rl *rateLimiter) handle(c *gin.Context) {
	ip := c.ClientIP()
	now := time.Now()

	count, windowEnd, err := rl.incrRedis(c.Request.Context(), ip, now)
	if err != nil {
		log.Debug().Err(err).Msg("rate limiter: redis no disponible, usando ventana local")
		count, windowEnd = rl.incrLocal(ip, now)
	}

	if count > rl.limit {
		c.Header("Retry-After", fmt.Sprintf("%d", int(windowEnd.Sub(now).Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
		return
	}
	c.Next()
}

func (rl *rateLimiter) incrRedis(ctx context.Context, ip string, now time.Time) (int, time.Time, error) {
	if rl.rdb == nil {
		return 0, time.Time{}, redis.ErrClosed
	}
	slot := now.UnixNano() / int64(rl.window)
	windowEnd := time.Unix(0, (slot+1)*int64(rl.window))
	key := fmt.Sprintf("%s%s:%d", rateKeyPrefix, ip, slot)

	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}
	return int(incr.Val()), windowEnd, nil
}

func (rl *rateLimiter) incrLocal(ip string, now time.Time) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.local[ip]
	if !ok || now.After(entry.windowEnd) {
		entry = &rateEntry{windowEnd: now.Add(rl.window)}
		rl.local[ip] = entry
	}
	entry.count++

	// drop expired windows so IPs that never return do not accumulate
	if len(rl.local) > 1024 {
		for k, e := range rl.local {
			if now.After(e.windowEnd) {
				delete(rl.local, k)
			}
		}
	}
	return entry.count, entry.windowEnd
}
