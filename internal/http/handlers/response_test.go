package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestFail_ServerErrorIsLoggedAndRecorded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	var recorded int
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
		recorded = len(c.Errors)
	})
	r.POST("/events", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeTransitionFailed, "could not apply event")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeTransitionFailed || resp.Reply != nil {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), ErrCodeTransitionFailed) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
	if recorded != 1 {
		t.Fatalf("expected the failure on c.Errors, got %d", recorded)
	}
}

func TestFailWithReply_ClientErrorCarriesReply(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Next()
	})
	r.POST("/events", func(c *gin.Context) {
		failWithReply(c, http.StatusConflict, ErrCodeInvalidTransition, "please use the buttons", ReplyDTO{Selector: "use_buttons"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", nil))

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusConflict || resp.Reply == nil || resp.Reply.Selector != "use_buttons" {
		t.Fatalf("unexpected %d %+v", w.Code, resp)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx must not log at handler level: %s", buf.String())
	}
}

func TestFail_FallbackAndSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found") })
	r.GET("/admin/stats", func(c *gin.Context) { ok(c, http.StatusOK, gin.H{"total_count": 3}) })
	r.POST("/reminders/:identity", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if w.Code != http.StatusNotFound || er.Code != ErrCodeNotFound {
		t.Fatalf("fallback: %d %+v", w.Code, er)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total_count":3`) {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reminders/42", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}
}
