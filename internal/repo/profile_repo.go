// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for UserProfile.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no funnel rules, only persistence and query composition.
//
// Error semantics:
//   - A missing profile yields ErrNotFound (= gorm.ErrRecordNotFound).
//   - A compare-and-set update whose expected state no longer matches yields
//     ErrStateMismatch.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/vibe-compass/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStateMismatch is returned by CompareAndSetProfile when the stored state
// differs from the expected one.
var ErrStateMismatch = errors.New("profile state changed concurrently")

// Column names for the answer fields, keyed by domain.AnswerField.
var answerColumns = map[domain.AnswerField]string{
	domain.FieldEmotion:   "emotion",
	domain.FieldPainPoint: "pain_point",
	domain.FieldTimeSpent: "time_spent",
}

// AnswerColumn returns the profile column that stores field.
func AnswerColumn(field domain.AnswerField) (string, bool) {
	col, ok := answerColumns[field]
	return col, ok
}

// GetProfile fetches a profile by identity, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, identity string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := db.WithContext(ctx).Where("identity = ?", identity).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProfileIfAbsent inserts a fresh START profile unless one already
// exists for identity, then returns the stored row. Concurrent callers for
// the same identity all observe the single winning row.
func CreateProfileIfAbsent(ctx context.Context, db *gorm.DB, identity, displayName, lastName, handle string) (*domain.UserProfile, error) {
	now := time.Now().UTC()
	p := &domain.UserProfile{
		Identity:    identity,
		DisplayName: displayName,
		LastName:    lastName,
		Handle:      handle,
		State:       domain.StateStart,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "identity"}}, DoNothing: true}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, identity)
}

// UpdateState overwrites the state column.
func UpdateState(ctx context.Context, db *gorm.DB, identity string, state domain.State) error {
	return updateProfile(ctx, db, identity, map[string]any{"state": state})
}

// UpdateAnswer overwrites one answer column.
func UpdateAnswer(ctx context.Context, db *gorm.DB, identity string, field domain.AnswerField, value string) error {
	col, ok := AnswerColumn(field)
	if !ok {
		return gorm.ErrInvalidField
	}
	return updateProfile(ctx, db, identity, map[string]any{col: value})
}

// UpdateCompletion marks the profile completed with status. Repeated calls
// overwrite the status.
func UpdateCompletion(ctx context.Context, db *gorm.DB, identity string, status domain.ConversionStatus) error {
	return updateProfile(ctx, db, identity, map[string]any{
		"completed":         true,
		"conversion_status": status,
	})
}

// UpdateLeadSent records that a CRM delivery attempt happened.
func UpdateLeadSent(ctx context.Context, db *gorm.DB, identity string) error {
	return updateProfile(ctx, db, identity, map[string]any{"lead_sent": true})
}

// CompareAndSetProfile applies updates only if the profile is still in state
// from. It returns ErrNotFound for unknown identities and ErrStateMismatch
// when another writer moved the profile first.
func CompareAndSetProfile(ctx context.Context, db *gorm.DB, identity string, from domain.State, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("identity = ? AND state = ?", identity, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := GetProfile(ctx, db, identity); err != nil {
		return err
	}
	return ErrStateMismatch
}

// CountProfiles returns the total number of profiles.
func CountProfiles(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.UserProfile{}).Count(&total).Error
	return total, err
}

// ListProfilesPage returns a page of profiles, most recent first.
func ListProfilesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.UserProfile, error) {
	var out []domain.UserProfile
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

func updateProfile(ctx context.Context, db *gorm.DB, identity string, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("identity = ?", identity).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
