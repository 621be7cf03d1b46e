// Package services – AnswerStore
//
// AnswerStore persists one UserProfile per chat identity together with the
// append-only AnswerRecord audit log. Every write for a given identity is
// serialized by an in-process keyed lock; transitions additionally use a
// compare-and-set on the previous state so that a second process sharing the
// database cannot tear a profile either. Writes for different identities
// never share a lock.
//
// Reads (Get, AggregateStats, ListAnswers, ListPage) take no lock.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnswerStore is the only shared mutable resource of the funnel.
type AnswerStore struct {
	DB    *gorm.DB
	locks *keyLock
}

// NewAnswerStore wraps db. AutoMigrate must have run beforehand.
func NewAnswerStore(db *gorm.DB) *AnswerStore {
	return &AnswerStore{DB: db, locks: newKeyLock()}
}

// Stats is the read-only aggregate exposed to operators.
type Stats struct {
	TotalCount         int64            `json:"total_count"`
	CompletedCount     int64            `json:"completed_count"`
	CompletionRate     float64          `json:"completion_rate"`
	PainPoints         map[string]int64 `json:"pain_points"`
	ConversionStatuses map[string]int64 `json:"conversion_statuses"`
}

// AnswerUpdate names one answer written by a transition.
type AnswerUpdate struct {
	Field domain.AnswerField
	Value string
}

// Transition describes the persisted effect of one accepted event.
//
// Status, when set, marks the profile completed with that conversion status.
// Reset clears the completion markers (not the answers) for a new pass.
// Contact, when set, is the merged contact written in the same update.
type Transition struct {
	To      domain.State
	Answer  *AnswerUpdate
	Status  domain.ConversionStatus
	Reset   bool
	Contact *domain.Contact
}

func storeTracer() trace.Tracer { return otel.Tracer("services/AnswerStore") }

// GetOrCreate returns the profile for identity, creating a START profile on
// first contact. An existing profile is returned unchanged.
func (s *AnswerStore) GetOrCreate(ctx context.Context, identity string, c domain.Contact) (*domain.UserProfile, error) {
	ctx, span := storeTracer().Start(ctx, "GetOrCreate", trace.WithAttributes(attribute.String("profile.identity", identity)))
	defer span.End()

	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrEmptyIdentity
	}
	if p, err := repo.GetProfile(ctx, s.DB, identity); err == nil {
		return p, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	unlock := s.locks.Lock(identity)
	defer unlock()
	return repo.CreateProfileIfAbsent(ctx, s.DB, identity, c.DisplayName, c.LastName, c.Handle)
}

// SetState overwrites the state field only.
func (s *AnswerStore) SetState(ctx context.Context, identity string, state domain.State) error {
	if !state.Valid() {
		return fmt.Errorf("set state %q: %w", state, ErrInvalidTransition)
	}
	unlock := s.locks.Lock(identity)
	defer unlock()
	return notFound(repo.UpdateState(ctx, s.DB, identity, state))
}

// RecordAnswer stores value on the profile field and appends an audit row in
// the same transaction.
func (s *AnswerStore) RecordAnswer(ctx context.Context, identity string, field domain.AnswerField, value string) error {
	ctx, span := storeTracer().Start(ctx, "RecordAnswer", trace.WithAttributes(
		attribute.String("profile.identity", identity),
		attribute.String("answer.field", string(field)),
	))
	defer span.End()

	if !field.Accepts(value) {
		return ErrInvalidAnswer
	}
	unlock := s.locks.Lock(identity)
	defer unlock()

	return notFound(s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateAnswer(ctx, tx, identity, field, value); err != nil {
			return err
		}
		_, err := repo.CreateAnswer(ctx, tx, identity, string(field), value)
		return err
	}))
}

// MarkCompleted sets completed=true with status. The last call wins.
func (s *AnswerStore) MarkCompleted(ctx context.Context, identity string, status domain.ConversionStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	unlock := s.locks.Lock(identity)
	defer unlock()
	return notFound(repo.UpdateCompletion(ctx, s.DB, identity, status))
}

// MarkLeadSent records that a delivery attempt was made.
func (s *AnswerStore) MarkLeadSent(ctx context.Context, identity string) error {
	unlock := s.locks.Lock(identity)
	defer unlock()
	return notFound(repo.UpdateLeadSent(ctx, s.DB, identity))
}

// Get returns the profile or ErrProfileNotFound.
func (s *AnswerStore) Get(ctx context.Context, identity string) (*domain.UserProfile, error) {
	p, err := repo.GetProfile(ctx, s.DB, identity)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ApplyTransition moves identity from state from to t.To and applies the
// transition's answer and completion effects atomically. If the profile is no
// longer in from, nothing is written and ErrInvalidTransition is returned.
func (s *AnswerStore) ApplyTransition(ctx context.Context, identity string, from domain.State, t Transition) (*domain.UserProfile, error) {
	ctx, span := storeTracer().Start(ctx, "ApplyTransition", trace.WithAttributes(
		attribute.String("profile.identity", identity),
		attribute.String("funnel.from", string(from)),
		attribute.String("funnel.to", string(t.To)),
	))
	defer span.End()

	updates := map[string]any{"state": t.To}
	if t.Reset {
		updates["completed"] = false
		updates["conversion_status"] = nil
		updates["lead_sent"] = false
	}
	if t.Answer != nil {
		col, ok := repo.AnswerColumn(t.Answer.Field)
		if !ok || !t.Answer.Field.Accepts(t.Answer.Value) {
			return nil, ErrInvalidAnswer
		}
		updates[col] = t.Answer.Value
	}
	if t.Status != "" {
		if !t.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		updates["completed"] = true
		updates["conversion_status"] = t.Status
	}
	if t.Contact != nil {
		updates["display_name"] = t.Contact.DisplayName
		updates["last_name"] = t.Contact.LastName
		updates["handle"] = t.Contact.Handle
	}

	unlock := s.locks.Lock(identity)
	defer unlock()

	var out *domain.UserProfile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The conditional write goes first so SQLite takes the write lock
		// before any read in this transaction.
		if err := repo.CompareAndSetProfile(ctx, tx, identity, from, updates); err != nil {
			return err
		}
		if t.Answer != nil {
			if _, err := repo.CreateAnswer(ctx, tx, identity, string(t.Answer.Field), t.Answer.Value); err != nil {
				return err
			}
		}
		p, err := repo.GetProfile(ctx, tx, identity)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, repo.ErrStateMismatch):
		return nil, ErrInvalidTransition
	default:
		return nil, notFound(err)
	}
}

// AggregateStats returns totals and distributions. An empty store yields a
// zero completion rate.
func (s *AnswerStore) AggregateStats(ctx context.Context) (*Stats, error) {
	ctx, span := storeTracer().Start(ctx, "AggregateStats")
	defer span.End()

	c, err := repo.FunnelStats(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		TotalCount:         c.Total,
		CompletedCount:     c.Completed,
		PainPoints:         c.PainPoints,
		ConversionStatuses: c.Statuses,
	}
	if c.Total > 0 {
		st.CompletionRate = float64(c.Completed) / float64(c.Total)
	}
	return st, nil
}

// ListAnswers returns the audit log for identity, oldest first.
func (s *AnswerStore) ListAnswers(ctx context.Context, identity string) ([]domain.AnswerRecord, error) {
	if _, err := s.Get(ctx, identity); err != nil {
		return nil, err
	}
	return repo.ListAnswers(ctx, s.DB, identity)
}

// ListPage returns profiles for the admin view, most recent first.
func (s *AnswerStore) ListPage(ctx context.Context, page, pageSize int) ([]domain.UserProfile, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountProfiles(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.UserProfile{}, 0, nil
	}
	items, err := repo.ListProfilesPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	return items, total, err
}

func notFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrProfileNotFound
	}
	return err
}
