// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the funnel identity a request acts for and guards the
// admin surface with a static token.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Header names understood by the funnel API.
const (
	HeaderIdentity   = "X-Identity"
	HeaderAdminToken = "X-Admin-Token"
)

const ctxKeyIdentity = "identity"

// SetIdentity stores the identity a request acts for.
func SetIdentity(c *gin.Context, identity string) {
	c.Set(ctxKeyIdentity, identity)
}

// IdentityFrom returns the identity stashed by SetIdentity, falling back to
// the X-Identity header that chat gateways set. Empty when neither is present.
func IdentityFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c.Request != nil {
		return strings.TrimSpace(c.GetHeader(HeaderIdentity))
	}
	return ""
}

// AdminAuth rejects requests whose X-Admin-Token does not match token.
// An empty token disables the check.
func AdminAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(HeaderAdminToken))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "admin token required",
			})
			return
		}
		c.Next()
	}
}
