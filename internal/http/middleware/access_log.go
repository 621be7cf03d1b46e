package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AccessLogOptions configures AccessLog.
type AccessLogOptions struct {
	// MaskHeaders are logged as "[REDACTED]" on top of Authorization, Cookie
	// and Set-Cookie. Matching is case-insensitive.
	MaskHeaders []string
}

// Redaction runs in this order: ids, emails, chat handles, phone numbers.
// Handles run after emails so the local part of an address is not mistaken
// for one, and phones run last because the pattern is the loosest.
var (
	uuidRE   = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	handleRE = regexp.MustCompile(`@[A-Za-z0-9_]{3,32}\b`)
	phoneRE  = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	s = handleRE.ReplaceAllString(s, "[REDACTED:handle]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// Pseudonym maps a chat identity to a stable token that can be logged. The
// same identity always yields the same token so one user's requests can be
// followed without storing the raw id in logs.
func Pseudonym(identity string) string {
	if identity == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(identity))
	return "id:" + hex.EncodeToString(sum[:6])
}

// AccessLog writes one structured line per request and attaches a
// request-scoped logger for handlers (see LoggerFrom).
//
// Identities never appear in clear: X-Identity and the identity resolved by
// the handler are logged as Pseudonym values, and raw paths of unmatched
// routes go through the same redaction as query strings and headers.
// Bodies are never logged. Level is info, warn for 4xx, error for 5xx or
// when handlers recorded gin errors.
func AccessLog(opts AccessLogOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}
	identityHeader := strings.ToLower(HeaderIdentity)

	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		path := route
		if path == "" {
			path = redact(c.Request.URL.Path)
		}

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			lk := strings.ToLower(k)
			switch _, mask := masked[lk]; {
			case mask:
				headers[k] = "[REDACTED]"
			case lk == identityHeader:
				headers[k] = Pseudonym(strings.TrimSpace(strings.Join(vv, "")))
			default:
				headers[k] = redact(strings.Join(vv, ", "))
			}
		}

		rid, _ := c.Get(requestIDKey)
		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("route_group", RouteGroup(route)).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		ev := l.Info()
		switch status := c.Writer.Status(); {
		case status >= 500 || len(c.Errors) > 0:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.
			Str("identity", Pseudonym(IdentityFrom(c))).
			Str("query", truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

// LoggerFrom returns the request-scoped logger set by AccessLog, or the
// global logger when none is attached.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}
