package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	idleTTL       = 10 * time.Minute
	pruneInterval = 3 * time.Minute
)

// KeyFunc returns the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// ActorOrIP keys by the authenticated actor when one is set, else by client IP.
func ActorOrIP(c *gin.Context) string {
	if v, ok := c.Get("actor_id"); ok {
		switch id := v.(type) {
		case uint:
			return "actor:" + strconv.FormatUint(uint64(id), 10)
		case string:
			if id != "" {
				return "actor:" + id
			}
		}
	}
	return "ip:" + c.ClientIP()
}

// ActorHeaderOrIP is ActorOrIP that also trusts the X-Actor-ID header.
func ActorHeaderOrIP(c *gin.Context) string {
	if _, ok := c.Get("actor_id"); !ok {
		if h := c.GetHeader("X-Actor-ID"); h != "" {
			return "actor:" + h
		}
	}
	return ActorOrIP(c)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles destructive requests per key with a token bucket.
type RateLimiter struct {
	enabled bool
	limit   rate.Limit
	burst   int
	key     KeyFunc
	now     func() time.Time

	mu        sync.Mutex
	limiters  map[string]*entry
	lastPrune time.Time
}

// NewRateLimiter allows requestsPerMinute sustained with the given burst.
func NewRateLimiter(requestsPerMinute, burst int, enabled bool) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		enabled:  enabled,
		limit:    rate.Limit(float64(requestsPerMinute) / 60),
		burst:    burst,
		key:      ActorOrIP,
		now:      time.Now,
		limiters: make(map[string]*entry),
	}
}

// WithKeyFunc replaces the request key, ActorOrIP by default.
func (rl *RateLimiter) WithKeyFunc(key KeyFunc) *RateLimiter {
	rl.key = key
	return rl
}

// AllowRequest reports whether key may proceed now.
func (rl *RateLimiter) AllowRequest(key string) bool {
	if !rl.enabled {
		return true
	}
	return rl.get(key).AllowN(rl.now(), 1)
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastPrune) > pruneInterval {
		for k, e := range rl.limiters {
			if now.Sub(e.lastSeen) > idleTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastPrune = now
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Middleware returns a Gin middleware that enforces the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.AllowRequest(rl.key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many deletion requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled        bool    `json:"enabled"`
	TrackedKeys    int     `json:"tracked_keys"`
	LimitPerMinute float64 `json:"limit_per_minute"`
	Burst          int     `json:"burst"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return Stats{
		Enabled:        true,
		TrackedKeys:    len(rl.limiters),
		LimitPerMinute: float64(rl.limit) * 60,
		Burst:          rl.burst,
	}
}

// Reset forgets every tracked key.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiters = make(map[string]*entry)
}
