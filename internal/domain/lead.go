package domain

import "strconv"

// LeadRecord is the transient view of a converted profile handed to the lead
// dispatcher. It is built and consumed inside a single conversion call.
type LeadRecord struct {
	Identity    string
	DisplayName string
	LastName    string
	Handle      string
	Emotion     string
	PainPoint   string
	TimeSpent   string
}

// NewLeadRecord copies the lead-relevant fields out of p.
func NewLeadRecord(p *UserProfile) LeadRecord {
	return LeadRecord{
		Identity:    p.Identity,
		DisplayName: p.DisplayName,
		LastName:    p.LastName,
		Handle:      p.Handle,
		Emotion:     p.Answer(FieldEmotion),
		PainPoint:   p.Answer(FieldPainPoint),
		TimeSpent:   p.Answer(FieldTimeSpent),
	}
}

// LeadPayload is the flat, provider-agnostic form of a lead. Every field is a
// plain string or number so any CRM sink can map it.
type LeadPayload struct {
	Title          string `json:"title"`
	Name           string `json:"name"`
	ContactHandle  string `json:"contact_handle"`
	PainPoint      string `json:"pain_point"`
	PainPointLabel string `json:"pain_point_label"`
	TimeSpent      string `json:"time_spent"`
	TimeSpentLabel string `json:"time_spent_label"`
	Emotion        string `json:"emotion"`
	EmotionLabel   string `json:"emotion_label"`
	ExternalID     string `json:"external_id"`
	Price          int    `json:"price"`
}

// Fields flattens the payload into string pairs, in a stable order, for sinks
// that only accept key/value rows.
func (p LeadPayload) Fields() [][2]string {
	return [][2]string{
		{"title", p.Title},
		{"name", p.Name},
		{"contact_handle", p.ContactHandle},
		{"pain_point", p.PainPointLabel},
		{"time_spent", p.TimeSpentLabel},
		{"emotion", p.EmotionLabel},
		{"external_id", p.ExternalID},
		{"price", strconv.Itoa(p.Price)},
	}
}

// DispatchOutcome classifies a delivery attempt.
//
// LoggedOnly is set when no CRM sink is configured; the lead was written to
// the log and the attempt counts as a success.
type DispatchOutcome struct {
	Success    bool   `json:"success"`
	LoggedOnly bool   `json:"logged_only,omitempty"`
	Detail     string `json:"detail,omitempty"`
}
