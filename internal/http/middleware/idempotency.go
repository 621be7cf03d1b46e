// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file handles delivery keys. Chat gateways retry an update when the bot
// answers slowly and send the platform update id as Idempotency-Key. The key
// is validated here and handed to the funnel, which owns the authoritative
// dedupe; a known replay is also let past the rate limiter so a retry storm
// cannot push the user into 429s.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HeaderIdempotencyKey carries the platform delivery id.
const HeaderIdempotencyKey = "Idempotency-Key"

// maxEventKeyLen matches the processed_events.event_key column.
const maxEventKeyLen = 200

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~:\-]+$`)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
)

var replays = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "funnel_http_replays_total",
	Help: "Redelivered events recognised before reaching the funnel.",
})

func init() { prometheus.MustRegister(replays) }

// IdempotencyOptions tunes key validation.
type IdempotencyOptions struct {
	// MaxLen defaults to the stored key width (200).
	MaxLen int
	// Pattern defaults to letters, digits and ._~:-
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether (identity, key) was already applied and
// is still inside its retention window at now. Errors are treated as a miss.
type IdempotencyLookup func(ctx context.Context, identity, key string, now time.Time) (bool, error)

// GetIdempotencyKey returns the validated delivery key, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s, _ := c.Value(ctxKeyIdemKey).(string)
	return s, s != ""
}

// IsReplay reports whether the lookup recognised this delivery.
func IsReplay(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyIdemReplay).(bool)
	return b
}

// IdempotencyValidator rejects malformed keys with 400, stashes valid ones
// and, when the identity is already known from X-Identity, flags replays.
// Requests without the header pass through untouched. PostEvent rejects a
// body whose identity differs from X-Identity, so a replay flag earned by
// one identity never lets another through.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = maxEventKeyLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if id := IdentityFrom(c); lookup != nil && id != "" {
			if seen, err := lookup(c.Request.Context(), id, key, time.Now().UTC()); err == nil && seen {
				c.Set(ctxKeyIdemReplay, true)
				replays.Inc()
			}
		}
		c.Next()
	}
}
