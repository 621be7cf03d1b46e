// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate queries behind the admin
// statistics view.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/vibe-compass/internal/domain"
)

// FunnelCounts is the raw aggregate over all profiles.
//
// PainPoints and Statuses only contain values that occur at least once;
// profiles without a pain point or status are not counted in those maps.
type FunnelCounts struct {
	Total      int64
	Completed  int64
	PainPoints map[string]int64
	Statuses   map[string]int64
}

type groupCount struct {
	Value string
	N     int64
}

// FunnelStats computes totals, completions and the pain-point and
// conversion-status distributions in four lightweight queries. The queries
// share one transaction so the numbers describe the same snapshot.
func FunnelStats(ctx context.Context, db *gorm.DB) (FunnelCounts, error) {
	out := FunnelCounts{
		PainPoints: map[string]int64{},
		Statuses:   map[string]int64{},
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.UserProfile{})
		if err := q.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
			return err
		}
		if out.Total == 0 {
			return nil
		}
		if err := q.Session(&gorm.Session{}).Where("completed = ?", true).Count(&out.Completed).Error; err != nil {
			return err
		}

		pains, err := groupBy(tx, "pain_point")
		if err != nil {
			return err
		}
		for _, g := range pains {
			out.PainPoints[g.Value] = g.N
		}

		statuses, err := groupBy(tx, "conversion_status")
		if err != nil {
			return err
		}
		for _, g := range statuses {
			out.Statuses[g.Value] = g.N
		}
		return nil
	})
	if err != nil {
		return FunnelCounts{}, err
	}
	return out, nil
}

// groupBy counts non-null values of column. column is always one of the
// fixed names above, never user input.
func groupBy(tx *gorm.DB, column string) ([]groupCount, error) {
	var rows []groupCount
	err := tx.
		Model(&domain.UserProfile{}).
		Select(column + " AS value, COUNT(*) AS n").
		Where(column + " IS NOT NULL").
		Group(column).
		Order(column).
		Scan(&rows).Error
	return rows, err
}
