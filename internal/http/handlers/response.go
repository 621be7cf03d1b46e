package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vibe-compass/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go).
	Code string `json:"code" example:"invalid_transition"`
	// Safe to show to the end user.
	Message string `json:"message" example:"please use the buttons"`
	// Reply, when set, is what the transport should render in the chat
	// instead of a generic error.
	Reply *ReplyDTO `json:"reply,omitempty"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// request-scoped logger and recorded on the gin context so the access log
// line carries them too.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg})
}

// failWithReply is fail for rejections the chat user should see as a
// regular bot message.
func failWithReply(c *gin.Context, status int, code, msg string, reply ReplyDTO) {
	abort(c, status, ErrorResponse{Code: code, Message: msg, Reply: &reply})
}

func abort(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
		_ = c.Error(errors.New(resp.Code))
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail is fail for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
