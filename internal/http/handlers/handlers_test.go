package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/http/middleware"
	"github.com/tbourn/vibe-compass/internal/repo"
	"github.com/tbourn/vibe-compass/internal/services"
)

// ---------- test wiring ----------

func newFunnelDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestRouter(t *testing.T) (*gin.Engine, *services.FunnelService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := services.NewAnswerStore(newFunnelDB(t))
	funnel := services.NewFunnelService(store, nil, nil)
	h := New(funnel, store)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.POST("/events", h.PostEvent)
	r.POST("/reminders/:identity", h.DeliverReminder)
	r.GET("/profiles/:identity", h.GetProfile)
	r.GET("/profiles/:identity/answers", h.ListProfileAnswers)
	r.GET("/admin/stats", h.Stats)
	r.GET("/admin/profiles", h.ListProfiles)
	return r, funnel
}

func postEvent(t *testing.T, r http.Handler, identity, action, key string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(EventRequest{Identity: identity, DisplayName: "Anna", Handle: "@anna_p", Action: action})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEvent(t *testing.T, w *httptest.ResponseRecorder) EventResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp EventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	return resp
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

// ---------- events ----------

func TestPostEvent_FullConversion(t *testing.T) {
	r, _ := newTestRouter(t)

	steps := []struct {
		action    string
		wantState string
		wantFirst string
	}{
		{"start", "start", services.SelectorIntro},
		{"start_quiz", "q_emotion", services.SelectorAskEmotion},
		{"emotion_tired", "q_pain", "ack_emotion_tired"},
		{"pain_messages", "q_time", services.SelectorAskTime},
		{"time_high", "offer", services.SelectorInsight},
		{"action_consultation", "ended", services.SelectorConversion},
	}
	var last EventResponse
	for _, s := range steps {
		last = decodeEvent(t, postEvent(t, r, "42", s.action, ""))
		if last.State != s.wantState {
			t.Fatalf("%s: state=%q; want %q", s.action, last.State, s.wantState)
		}
		if len(last.Replies) == 0 || last.Replies[0].Selector != s.wantFirst {
			t.Fatalf("%s: replies=%+v", s.action, last.Replies)
		}
	}
	if last.Lead == nil || !last.Lead.Success || !last.Lead.LoggedOnly {
		t.Fatalf("expected log-only lead outcome, got %+v", last.Lead)
	}

	// Pacing hints surface as delay_ms.
	w := postEvent(t, r, "43", "start_quiz", "")
	_ = decodeEvent(t, w)
	resp := decodeEvent(t, postEvent(t, r, "43", "emotion_annoyed", ""))
	if len(resp.Replies) != 2 || resp.Replies[1].DelayMS != 1500 || resp.Replies[1].Keyboard != services.KeyboardPainPoint {
		t.Fatalf("unexpected pacing replies: %+v", resp.Replies)
	}
}

func TestPostEvent_InvalidTransition(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postEvent(t, r, "42", "pain_messages", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d; want 409", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeInvalidTransition || er.Message != "please use the buttons" ||
		er.Reply == nil || er.Reply.Selector != services.SelectorUseButtons {
		t.Fatalf("unexpected error body: %+v", er)
	}

	// Unknown codes are rejected the same way.
	if w := postEvent(t, r, "42", "emotion_happy", ""); w.Code != http.StatusConflict {
		t.Fatalf("unknown code status=%d; want 409", w.Code)
	}
}

func TestPostEvent_BadRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := map[string]string{
		"malformed":      `{"identity":`,
		"missing action": `{"identity":"42"}`,
		"blank identity": `{"identity":"   ","action":"start"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d; want 400", w.Code)
			}
		})
	}
}

func TestPostEvent_IdempotencyKeyDeduplicates(t *testing.T) {
	r, _ := newTestRouter(t)

	first := decodeEvent(t, postEvent(t, r, "42", "start_quiz", "update-1"))
	if first.Duplicate || first.State != "q_emotion" {
		t.Fatalf("unexpected first response: %+v", first)
	}
	again := decodeEvent(t, postEvent(t, r, "42", "start_quiz", "update-1"))
	if !again.Duplicate || again.State != "q_emotion" || len(again.Replies) != 0 {
		t.Fatalf("expected duplicate no-op, got %+v", again)
	}
}

func TestPostEvent_IdentityHeaderMustMatchBody(t *testing.T) {
	r, funnel := newTestRouter(t)

	body, _ := json.Marshal(EventRequest{Identity: "attacker", Action: "start_quiz"})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdentity, "victim")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d; want 400", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeIdentityMismatch {
		t.Fatalf("unexpected error body: %+v", er)
	}
	if _, err := funnel.Store.Get(context.Background(), "attacker"); !errors.Is(err, services.ErrProfileNotFound) {
		t.Fatalf("mismatched event must not be applied, got %v", err)
	}

	// A matching header is fine.
	req = httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdentity, "attacker")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := decodeEvent(t, w); got.State != "q_emotion" {
		t.Fatalf("unexpected state %q", got.State)
	}
}

type failingFunnel struct{ err error }

func (f failingFunnel) Handle(context.Context, services.Event) (*services.Response, error) {
	return nil, f.err
}

func (f failingFunnel) Reminder(context.Context, string) (*services.Response, error) {
	return nil, f.err
}

func TestPostEvent_PersistenceFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(failingFunnel{err: fmt.Errorf("apply transition: %w", errors.New("disk I/O error"))}, nil)
	r := gin.New()
	r.POST("/events", h.PostEvent)
	r.POST("/reminders/:identity", h.DeliverReminder)

	w := postEvent(t, r, "42", "start", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d; want 500", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeTransitionFailed {
		t.Fatalf("unexpected code %q", er.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reminders/42", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("reminder status=%d; want 500", w.Code)
	}
}

// ---------- reminders ----------

func TestDeliverReminder(t *testing.T) {
	r, _ := newTestRouter(t)

	post := func(identity string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reminders/"+identity, nil))
		return w
	}

	if w := post("nobody"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown identity status=%d; want 404", w.Code)
	}

	_ = decodeEvent(t, postEvent(t, r, "42", "start", ""))
	if w := post("42"); w.Code != http.StatusNoContent {
		t.Fatalf("profile in start status=%d; want 204", w.Code)
	}

	_ = decodeEvent(t, postEvent(t, r, "42", "remind_later", ""))
	resp := decodeEvent(t, post("42"))
	if resp.State != "start" || len(resp.Replies) != 1 || resp.Replies[0].Selector != services.SelectorReminder {
		t.Fatalf("unexpected reminder response: %+v", resp)
	}
}

// ---------- profiles ----------

func TestProfileEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := get(r, "/profiles/42"); w.Code != http.StatusNotFound {
		t.Fatalf("missing profile status=%d; want 404", w.Code)
	}
	if w := get(r, "/profiles/42/answers"); w.Code != http.StatusNotFound {
		t.Fatalf("missing answers status=%d; want 404", w.Code)
	}

	for _, a := range []string{"start_quiz", "emotion_confused", "pain_copying"} {
		_ = decodeEvent(t, postEvent(t, r, "42", a, ""))
	}

	w := get(r, "/profiles/42")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var p domain.UserProfile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.State != domain.StateQTime || p.Handle != "anna_p" || p.Answer(domain.FieldPainPoint) != domain.PainCopying {
		t.Fatalf("unexpected profile: %+v", p)
	}

	w = get(r, "/profiles/42/answers")
	var ar AnswersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ar); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(ar.Answers) != 2 || ar.Answers[0].Question != string(domain.FieldEmotion) || ar.Answers[1].Answer != domain.PainCopying {
		t.Fatalf("unexpected answers: %+v", ar.Answers)
	}
}

// ---------- admin ----------

func TestAdminStatsAndProfiles(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/admin/stats")
	var empty services.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &empty); err != nil || w.Code != http.StatusOK {
		t.Fatalf("stats on empty store: %d %v", w.Code, err)
	}
	if empty.TotalCount != 0 || empty.CompletionRate != 0 {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	for _, id := range []string{"1", "2", "3"} {
		_ = decodeEvent(t, postEvent(t, r, id, "start", ""))
	}
	_ = decodeEvent(t, postEvent(t, r, "1", "remind_later", ""))

	w = get(r, "/admin/stats")
	var st services.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.TotalCount != 3 || st.CompletedCount != 1 || st.ConversionStatuses[string(domain.StatusPostponed)] != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	w = get(r, "/admin/profiles?page=2&page_size=2")
	var lp ListProfilesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &lp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(lp.Profiles) != 1 || lp.Pagination.Total != 3 || lp.Pagination.TotalPages != 2 || lp.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", lp.Pagination)
	}
}

func TestClampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query            string
		wantPage, wantPS int
	}{
		{"", 1, 20},
		{"page=0&page_size=0", 1, 1},
		{"page=3&page_size=500", 3, 100},
		{"page=x&page_size=y", 1, 20},
		{"page=-2&page_size=7", 1, 7},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		page, ps := clampPagination(c)
		if page != tc.wantPage || ps != tc.wantPS {
			t.Fatalf("%q: got (%d,%d); want (%d,%d)", tc.query, page, ps, tc.wantPage, tc.wantPS)
		}
	}
}
