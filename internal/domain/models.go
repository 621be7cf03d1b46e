// Package domain defines the persistence models for funnel profiles and the
// answer audit log. These types are mapped with GORM and form the core data
// layer of the funnel.
package domain

import "time"

// UserProfile is the per-user funnel progress, one row per chat identity.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Identity: stable external id from the chat platform (unique, immutable).
//   - DisplayName / LastName / Handle: contact fields; an accepted event
//     overwrites the ones it carries and leaves blank ones alone.
//   - State: current funnel position.
//   - Emotion / PainPoint / TimeSpent: latest answers; nil until answered and
//     left stale (not cleared) when the user restarts the funnel.
//   - Completed / ConversionStatus: terminal outcome; ConversionStatus is nil
//     while Completed is false.
//   - LeadSent: a CRM delivery attempt was made for the current pass.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type UserProfile struct {
	ID               uint              `json:"-"                           gorm:"primaryKey;autoIncrement"`
	Identity         string            `json:"identity"                    gorm:"type:varchar(64);not null;uniqueIndex:ux_profile_identity"`
	DisplayName      string            `json:"display_name,omitempty"      gorm:"type:varchar(255)"`
	LastName         string            `json:"last_name,omitempty"         gorm:"type:varchar(255)"`
	Handle           string            `json:"handle,omitempty"            gorm:"type:varchar(255)"`
	State            State             `json:"state"                       gorm:"type:varchar(32);not null;default:'start';index"`
	Emotion          *string           `json:"emotion,omitempty"           gorm:"type:varchar(50)"`
	PainPoint        *string           `json:"pain_point,omitempty"        gorm:"type:varchar(50);index"`
	TimeSpent        *string           `json:"time_spent,omitempty"        gorm:"type:varchar(50)"`
	Completed        bool              `json:"completed"                   gorm:"not null;default:false;index"`
	ConversionStatus *ConversionStatus `json:"conversion_status,omitempty" gorm:"type:varchar(50)"`
	LeadSent         bool              `json:"lead_sent"                   gorm:"not null;default:false"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "user_profiles" }

// Answer returns the stored value for field, or "" when unanswered.
func (p *UserProfile) Answer(field AnswerField) string {
	var v *string
	switch field {
	case FieldEmotion:
		v = p.Emotion
	case FieldPainPoint:
		v = p.PainPoint
	case FieldTimeSpent:
		v = p.TimeSpent
	}
	if v == nil {
		return ""
	}
	return *v
}

// AnswerRecord is one row of the append-only answer audit log. Rows are never
// updated or deleted and carry no foreign key to the profile.
type AnswerRecord struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Identity  string    `json:"identity"   gorm:"type:varchar(64);not null;index:idx_answers_identity,priority:1"`
	Question  string    `json:"question"   gorm:"type:varchar(100);not null"`
	Answer    string    `json:"answer"     gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_answers_identity,priority:2"`
}

// TableName returns the database table name for AnswerRecord.
func (AnswerRecord) TableName() string { return "answer_records" }

// Contact carries the mutable chat-platform fields of a profile.
type Contact struct {
	DisplayName string `json:"display_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Handle      string `json:"handle,omitempty"`
}

// Contact returns the contact fields currently stored on p.
func (p *UserProfile) Contact() Contact {
	return Contact{DisplayName: p.DisplayName, LastName: p.LastName, Handle: p.Handle}
}

// Merge returns c with every non-empty field of in applied on top.
func (c Contact) Merge(in Contact) Contact {
	if in.DisplayName != "" {
		c.DisplayName = in.DisplayName
	}
	if in.LastName != "" {
		c.LastName = in.LastName
	}
	if in.Handle != "" {
		c.Handle = in.Handle
	}
	return c
}
