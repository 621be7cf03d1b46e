// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// AnswerRecord audit log.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/vibe-compass/internal/domain"
)

// CreateAnswer appends one audit row. Rows are never updated afterwards.
func CreateAnswer(ctx context.Context, db *gorm.DB, identity, question, answer string) (*domain.AnswerRecord, error) {
	rec := &domain.AnswerRecord{
		Identity:  identity,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// ListAnswers returns the audit rows for identity in insertion order.
func ListAnswers(ctx context.Context, db *gorm.DB, identity string) ([]domain.AnswerRecord, error) {
	var out []domain.AnswerRecord
	err := db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// CountAnswers returns the number of audit rows for identity.
func CountAnswers(ctx context.Context, db *gorm.DB, identity string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.AnswerRecord{}).Where("identity = ?", identity).Count(&n).Error
	return n, err
}
