// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for ProcessedEvent,
// which lets the event endpoint treat redelivered updates as no-ops.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/vibe-compass/internal/domain"
)

// ErrDuplicate indicates that a processed-event record already exists for the
// given (identity, key) pair.
var ErrDuplicate = errors.New("duplicate")

// GetProcessedEvent returns a non-expired record or ErrNotFound.
func GetProcessedEvent(ctx context.Context, db *gorm.DB, identity, key string, now time.Time) (*domain.ProcessedEvent, error) {
	if strings.TrimSpace(identity) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ProcessedEvent
	err := db.WithContext(ctx).
		Where("identity = ? AND event_key = ? AND expires_at > ?", identity, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateProcessedEvent inserts a record and returns ErrDuplicate on unique
// violation.
func CreateProcessedEvent(ctx context.Context, db *gorm.DB, identity, key, action string, state domain.State, ttl time.Duration) (*domain.ProcessedEvent, error) {
	now := time.Now().UTC()
	rec := &domain.ProcessedEvent{
		ID:        uuid.NewString(),
		Identity:  identity,
		EventKey:  key,
		Action:    action,
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredEvents deletes records whose TTL elapsed before now and reports
// how many rows were removed.
func PurgeExpiredEvents(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.ProcessedEvent{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key") ||
		strings.Contains(low, "duplicate entry")
}
