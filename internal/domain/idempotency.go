// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// ProcessedEvent records an inbound transport event that was already applied,
// keyed by (identity, key). Chat platforms redeliver updates on timeouts; the
// record lets the transport retry without replaying the transition.
type ProcessedEvent struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Identity  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_identity_event_key,priority:1"`
	EventKey  string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_identity_event_key,priority:2"`
	Action    string    `gorm:"type:varchar(64);not null"`
	State     State     `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedEvent) TableName() string { return "processed_events" }
