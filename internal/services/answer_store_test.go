package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/repo"
)

// newTestStore opens a file-backed SQLite so concurrent tests exercise real
// WAL locking rather than shared-cache table locks.
func newTestStore(t *testing.T) *AnswerStore {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "funnel.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewAnswerStore(db)
}

func countAnswers(t *testing.T, db *gorm.DB, identity string) int64 {
	t.Helper()
	n, err := repo.CountAnswers(context.Background(), db, identity)
	if err != nil {
		t.Fatalf("count answers: %v", err)
	}
	return n
}

func TestAnswerStore_GetOrCreate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreate(ctx, "42", domain.Contact{DisplayName: "Ann", Handle: "ann"})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first.State != domain.StateStart || first.Completed || first.ConversionStatus != nil {
		t.Fatalf("unexpected new profile: %+v", first)
	}

	time.Sleep(5 * time.Millisecond)
	second, err := s.GetOrCreate(ctx, "42", domain.Contact{DisplayName: "Changed"})
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if second.Identity != first.Identity || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
	if second.DisplayName != "Ann" {
		t.Fatalf("existing profile must be returned unchanged, got %q", second.DisplayName)
	}

	if _, err := s.GetOrCreate(ctx, "  ", domain.Contact{}); !errors.Is(err, ErrEmptyIdentity) {
		t.Fatalf("expected ErrEmptyIdentity, got %v", err)
	}
}

func TestAnswerStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("Get: expected ErrProfileNotFound, got %v", err)
	}
	if err := s.SetState(ctx, "ghost", domain.StateQPain); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("SetState: expected ErrProfileNotFound, got %v", err)
	}
	if err := s.RecordAnswer(ctx, "ghost", domain.FieldEmotion, domain.EmotionTired); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("RecordAnswer: expected ErrProfileNotFound, got %v", err)
	}
	if err := s.MarkCompleted(ctx, "ghost", domain.StatusConverted); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("MarkCompleted: expected ErrProfileNotFound, got %v", err)
	}
	if err := s.MarkLeadSent(ctx, "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("MarkLeadSent: expected ErrProfileNotFound, got %v", err)
	}
	if _, err := s.ListAnswers(ctx, "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("ListAnswers: expected ErrProfileNotFound, got %v", err)
	}
	// A failed RecordAnswer leaves no orphan audit row.
	if n := countAnswers(t, s.DB, "ghost"); n != 0 {
		t.Fatalf("expected no audit rows, got %d", n)
	}
}

func TestAnswerStore_RecordAnswer_WritesFieldAndAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, "1", domain.Contact{}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if err := s.RecordAnswer(ctx, "1", domain.FieldPainPoint, domain.PainDocuments); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	p, _ := s.Get(ctx, "1")
	if p.Answer(domain.FieldPainPoint) != domain.PainDocuments {
		t.Fatalf("field not stored: %+v", p)
	}
	recs, err := s.ListAnswers(ctx, "1")
	if err != nil || len(recs) != 1 || recs[0].Question != "pain_point" || recs[0].Answer != domain.PainDocuments {
		t.Fatalf("unexpected audit rows: %+v, %v", recs, err)
	}

	if err := s.RecordAnswer(ctx, "1", domain.FieldPainPoint, domain.TimeLow); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer for cross-field value, got %v", err)
	}
	if err := s.RecordAnswer(ctx, "1", domain.AnswerField("name"), "x"); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer for unknown field, got %v", err)
	}
}

func TestAnswerStore_SetStateAndMarkCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, "1", domain.Contact{}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if err := s.SetState(ctx, "1", domain.StateOffer); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := s.SetState(ctx, "1", domain.State("limbo")); err == nil {
		t.Fatalf("expected error for unknown state")
	}
	if err := s.MarkCompleted(ctx, "1", domain.StatusPostponed); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	// Re-completion overwrites; last write wins.
	if err := s.MarkCompleted(ctx, "1", domain.StatusConverted); err != nil {
		t.Fatalf("MarkCompleted again: %v", err)
	}
	if err := s.MarkCompleted(ctx, "1", domain.ConversionStatus("won")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	p, _ := s.Get(ctx, "1")
	if p.State != domain.StateOffer || !p.Completed || *p.ConversionStatus != domain.StatusConverted {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestAnswerStore_ApplyTransition_Contact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, "1", domain.Contact{DisplayName: "a"}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	// A stale transition carries its contact down with it.
	c := domain.Contact{DisplayName: "b", LastName: "c", Handle: "d"}
	if _, err := s.ApplyTransition(ctx, "1", domain.StateOffer, Transition{To: domain.StateEnded, Contact: &c}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	p, _ := s.Get(ctx, "1")
	if p.DisplayName != "a" || p.Handle != "" {
		t.Fatalf("rejected transition wrote contact: %+v", p.Contact())
	}

	p, err := s.ApplyTransition(ctx, "1", domain.StateStart, Transition{To: domain.StateStart, Contact: &c})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if p.Contact() != c {
		t.Fatalf("contact not refreshed: %+v", p.Contact())
	}
}

func TestAnswerStore_ApplyTransition_StaleStateWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, "1", domain.Contact{}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	_, err := s.ApplyTransition(ctx, "1", domain.StateQEmotion, Transition{
		To:     domain.StateQPain,
		Answer: &AnswerUpdate{Field: domain.FieldEmotion, Value: domain.EmotionTired},
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	p, _ := s.Get(ctx, "1")
	if p.State != domain.StateStart || p.Emotion != nil {
		t.Fatalf("profile mutated by rejected transition: %+v", p)
	}
	if n := countAnswers(t, s.DB, "1"); n != 0 {
		t.Fatalf("audit row written by rejected transition: %d", n)
	}

	if _, err := s.ApplyTransition(ctx, "ghost", domain.StateStart, Transition{To: domain.StateQEmotion}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestAnswerStore_ApplyTransition_ResetKeepsAnswers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, "1", domain.Contact{}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := s.RecordAnswer(ctx, "1", domain.FieldEmotion, domain.EmotionAnnoyed); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if _, err := s.ApplyTransition(ctx, "1", domain.StateStart, Transition{To: domain.StateComplete, Status: domain.StatusPostponed}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.MarkLeadSent(ctx, "1"); err != nil {
		t.Fatalf("MarkLeadSent: %v", err)
	}

	p, err := s.ApplyTransition(ctx, "1", domain.StateComplete, Transition{To: domain.StateQEmotion, Reset: true})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p.Completed || p.ConversionStatus != nil || p.LeadSent {
		t.Fatalf("completion markers not reset: %+v", p)
	}
	if p.Answer(domain.FieldEmotion) != domain.EmotionAnnoyed {
		t.Fatalf("answers must stay stale until overwritten: %+v", p)
	}
}

func TestAnswerStore_ConcurrentRecordAnswer_SameIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, "1", domain.Contact{}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	writes := []struct {
		field domain.AnswerField
		value string
	}{
		{domain.FieldEmotion, domain.EmotionConfused},
		{domain.FieldPainPoint, domain.PainCopying},
		{domain.FieldTimeSpent, domain.TimeMedium},
	}
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		for _, w := range writes {
			wg.Add(1)
			go func(f domain.AnswerField, v string) {
				defer wg.Done()
				if err := s.RecordAnswer(ctx, "1", f, v); err != nil {
					t.Errorf("RecordAnswer(%s): %v", f, err)
				}
			}(w.field, w.value)
		}
	}
	wg.Wait()

	p, _ := s.Get(ctx, "1")
	for _, w := range writes {
		if p.Answer(w.field) != w.value {
			t.Fatalf("lost update on %s: %+v", w.field, p)
		}
	}
	if n := countAnswers(t, s.DB, "1"); n != 15 {
		t.Fatalf("expected 15 audit rows, got %d", n)
	}
	if s.locks.size() != 0 {
		t.Fatalf("key locks leaked: %d", s.locks.size())
	}
}

func TestAnswerStore_ConcurrentIdentitiesIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		if _, err := s.GetOrCreate(ctx, id, domain.Contact{}); err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
	}

	// Holding one identity's lock must not block another identity.
	unlock := s.locks.Lock("a")
	done := make(chan error, 1)
	go func() { done <- s.RecordAnswer(ctx, "b", domain.FieldEmotion, domain.EmotionTired) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RecordAnswer(b): %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("write for identity b blocked by lock on a")
	}
	unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.RecordAnswer(ctx, id, domain.FieldTimeSpent, domain.TimeHigh); err != nil {
				t.Errorf("RecordAnswer(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()
	for _, id := range ids {
		p, _ := s.Get(ctx, id)
		if p.Answer(domain.FieldTimeSpent) != domain.TimeHigh {
			t.Fatalf("identity %s missing answer", id)
		}
	}
}

func TestAnswerStore_AggregateStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.AggregateStats(ctx)
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	if empty.TotalCount != 0 || empty.CompletedCount != 0 || empty.CompletionRate != 0 {
		t.Fatalf("expected zero stats, got %+v", empty)
	}

	for _, id := range []string{"1", "2", "3", "4"} {
		if _, err := s.GetOrCreate(ctx, id, domain.Contact{}); err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
	}
	_ = s.RecordAnswer(ctx, "1", domain.FieldPainPoint, domain.PainData)
	_ = s.RecordAnswer(ctx, "2", domain.FieldPainPoint, domain.PainData)
	_ = s.RecordAnswer(ctx, "3", domain.FieldPainPoint, domain.PainMessages)
	_ = s.MarkCompleted(ctx, "1", domain.StatusConverted)

	st, err := s.AggregateStats(ctx)
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	if st.TotalCount != 4 || st.CompletedCount != 1 || st.CompletionRate != 0.25 {
		t.Fatalf("unexpected totals: %+v", st)
	}
	if st.PainPoints[domain.PainData] != 2 || st.PainPoints[domain.PainMessages] != 1 {
		t.Fatalf("unexpected pain counts: %v", st.PainPoints)
	}
	if st.ConversionStatuses[string(domain.StatusConverted)] != 1 {
		t.Fatalf("unexpected status counts: %v", st.ConversionStatuses)
	}
}

func TestAnswerStore_ListPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items, total, err := s.ListPage(ctx, 0, 0)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty ListPage = %v, %d, %v", items, total, err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if _, err := s.GetOrCreate(ctx, id, domain.Contact{}); err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
	}
	items, total, err = s.ListPage(ctx, 2, 2)
	if err != nil || total != 3 || len(items) != 1 {
		t.Fatalf("page 2 = %v, %d, %v", items, total, err)
	}
}
