package repo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tbourn/vibe-compass/internal/domain"
)

func TestCreateProfileIfAbsent_Idempotent(t *testing.T) {
	db := newFunnelDB(t)
	ctx := context.Background()

	first, err := CreateProfileIfAbsent(ctx, db, "100", "Ann", "Lee", "ann")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.State != domain.StateStart || first.Completed || first.LeadSent {
		t.Fatalf("unexpected fresh profile: %+v", first)
	}

	second, err := CreateProfileIfAbsent(ctx, db, "100", "Other", "", "")
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("second call must return the existing row: %+v vs %+v", second, first)
	}
	if second.DisplayName != "Ann" {
		t.Fatalf("existing row must not be overwritten, got %q", second.DisplayName)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	db := newFunnelDB(t)
	if _, err := GetProfile(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdates_Success(t *testing.T) {
	db := newFunnelDB(t)
	ctx := context.Background()
	if _, err := CreateProfileIfAbsent(ctx, db, "1", "A", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := UpdateState(ctx, db, "1", domain.StateQPain); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if err := UpdateAnswer(ctx, db, "1", domain.FieldPainPoint, domain.PainData); err != nil {
		t.Fatalf("UpdateAnswer: %v", err)
	}
	if err := UpdateCompletion(ctx, db, "1", domain.StatusPostponed); err != nil {
		t.Fatalf("UpdateCompletion: %v", err)
	}
	if err := UpdateCompletion(ctx, db, "1", domain.StatusConverted); err != nil {
		t.Fatalf("UpdateCompletion overwrite: %v", err)
	}
	if err := UpdateLeadSent(ctx, db, "1"); err != nil {
		t.Fatalf("UpdateLeadSent: %v", err)
	}

	p, err := GetProfile(ctx, db, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.State != domain.StateQPain || p.Answer(domain.FieldPainPoint) != domain.PainData {
		t.Fatalf("state/answer not updated: %+v", p)
	}
	if !p.Completed || p.ConversionStatus == nil || *p.ConversionStatus != domain.StatusConverted || !p.LeadSent {
		t.Fatalf("completion not updated: %+v", p)
	}
}

func TestUpdates_UnknownIdentity(t *testing.T) {
	db := newFunnelDB(t)
	ctx := context.Background()
	if err := UpdateState(ctx, db, "ghost", domain.StateQPain); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateState: expected ErrNotFound, got %v", err)
	}
	if err := UpdateLeadSent(ctx, db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateLeadSent: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAnswer_InvalidField(t *testing.T) {
	db := newFunnelDB(t)
	ctx := context.Background()
	if _, err := CreateProfileIfAbsent(ctx, db, "1", "", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := UpdateAnswer(ctx, db, "1", domain.AnswerField("name"), "x"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestCompareAndSetProfile(t *testing.T) {
	db := newFunnelDB(t)
	ctx := context.Background()
	if _, err := CreateProfileIfAbsent(ctx, db, "1", "", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := CompareAndSetProfile(ctx, db, "1", domain.StateStart, map[string]any{"state": domain.StateQEmotion}); err != nil {
		t.Fatalf("first CAS: %v", err)
	}
	// Stale expectation loses.
	err := CompareAndSetProfile(ctx, db, "1", domain.StateStart, map[string]any{"state": domain.StateEnded})
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
	if err := CompareAndSetProfile(ctx, db, "ghost", domain.StateStart, map[string]any{"state": domain.StateEnded}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p, _ := GetProfile(ctx, db, "1")
	if p.State != domain.StateQEmotion {
		t.Fatalf("state = %s; want q_emotion", p.State)
	}
}

func TestListProfilesPage_AndCount(t *testing.T) {
	db := newFunnelDB(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := CreateProfileIfAbsent(ctx, db, id, "", "", ""); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	n, err := CountProfiles(ctx, db)
	if err != nil || n != 3 {
		t.Fatalf("CountProfiles = %d, %v", n, err)
	}
	page, err := ListProfilesPage(ctx, db, 0, 2)
	if err != nil {
		t.Fatalf("ListProfilesPage: %v", err)
	}
	if len(page) != 2 || page[0].Identity != "c" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	rest, _ := ListProfilesPage(ctx, db, 2, 2)
	if len(rest) != 1 || rest[0].Identity != "a" {
		t.Fatalf("unexpected second page: %+v", rest)
	}
}

func TestCreateProfileIfAbsent_Concurrent(t *testing.T) {
	db, err := OpenSQLite(t.TempDir() + "/p.db")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan uint, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := CreateProfileIfAbsent(ctx, db, "same", "", "", "")
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids <- p.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first uint
	for id := range ids {
		if first == 0 {
			first = id
		}
		if id != first {
			t.Fatalf("concurrent creates returned different rows: %d vs %d", id, first)
		}
	}
	if n, _ := CountProfiles(ctx, db); n != 1 {
		t.Fatalf("expected exactly 1 profile, got %d", n)
	}
}
