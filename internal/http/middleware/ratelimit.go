// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file throttles callers with per-key token buckets from
// golang.org/x/time/rate. Buckets live in process memory; a horizontally
// scaled deployment gets one budget per replica.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const defaultBucketTTL = 10 * time.Minute

var rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "funnel_http_rate_limited_total",
	Help: "Requests rejected by the rate limiter, by route group.",
}, []string{"group"})

func init() { prometheus.MustRegister(rateLimited) }

type keyFunc func(*gin.Context) string

// KeyByIdentityOrIP buckets chat users by identity and everyone else (admin
// tools, anonymous callers) by client IP.
func KeyByIdentityOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := IdentityFrom(c); id != "" {
			return "id:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	keyFn keyFunc
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows rps sustained requests per key with bursts of up to
// burst (at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		ttl:     defaultBucketTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// bucketFor returns the limiter for key. Buckets idle for ttl are dropped,
// at most once per ttl, before the lookup.
func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// Handler rejects over-budget requests with 429 and a Retry-After telling the
// caller when the next token is due. Recognised replays are not charged.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsReplay(c) {
			c.Next()
			return
		}

		now := rl.now()
		res := rl.bucketFor(rl.keyFn(c), now).ReserveN(now, 1)
		if res.OK() && res.DelayFrom(now) == 0 {
			c.Next()
			return
		}

		retry := 1
		if res.OK() {
			retry = int(math.Ceil(res.DelayFrom(now).Seconds()))
			res.CancelAt(now)
		}
		rateLimited.WithLabelValues(RouteGroup(c.FullPath())).Inc()
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
