// Package domain defines the funnel vocabulary shared by the store, the state
// machine and the transport: conversation states, conversion outcomes, answer
// fields and the closed set of inbound actions.
package domain

import "strings"

// State is a position in the qualification funnel.
type State string

const (
	StateStart    State = "start"
	StateQEmotion State = "q_emotion"
	StateQPain    State = "q_pain"
	StateQTime    State = "q_time"
	StateOffer    State = "offer"
	StateComplete State = "complete"
	StateEnded    State = "ended"
)

// States lists every state in funnel order.
var States = []State{
	StateStart, StateQEmotion, StateQPain, StateQTime, StateOffer, StateComplete, StateEnded,
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	for _, v := range States {
		if s == v {
			return true
		}
	}
	return false
}

// ConversionStatus is the outcome recorded when a profile completes the funnel.
type ConversionStatus string

const (
	StatusPending       ConversionStatus = "pending"
	StatusConverted     ConversionStatus = "converted"
	StatusPDFDownloaded ConversionStatus = "pdf_downloaded"
	StatusPostponed     ConversionStatus = "postponed"
)

// ConversionStatuses lists the accepted outcomes.
var ConversionStatuses = []ConversionStatus{
	StatusPending, StatusConverted, StatusPDFDownloaded, StatusPostponed,
}

// Valid reports whether c is an accepted outcome.
func (c ConversionStatus) Valid() bool {
	for _, v := range ConversionStatuses {
		if c == v {
			return true
		}
	}
	return false
}

// AnswerField names a question whose answer is stored on the profile.
type AnswerField string

const (
	FieldEmotion   AnswerField = "emotion"
	FieldPainPoint AnswerField = "pain_point"
	FieldTimeSpent AnswerField = "time_spent"
)

// Valid reports whether f is one of the three funnel questions.
func (f AnswerField) Valid() bool {
	switch f {
	case FieldEmotion, FieldPainPoint, FieldTimeSpent:
		return true
	}
	return false
}

// Answer option codes. They double as the wire action codes sent by the
// transport, so they must never change.
const (
	EmotionTired    = "emotion_tired"
	EmotionAnnoyed  = "emotion_annoyed"
	EmotionConfused = "emotion_confused"

	PainMessages  = "pain_messages"
	PainData      = "pain_data"
	PainDeadlines = "pain_deadlines"
	PainDocuments = "pain_documents"
	PainCopying   = "pain_copying"

	TimeLow    = "time_low"
	TimeMedium = "time_medium"
	TimeHigh   = "time_high"
)

var (
	// Emotions are the accepted answers to the first question.
	Emotions = []string{EmotionTired, EmotionAnnoyed, EmotionConfused}
	// PainPoints are the accepted answers to the second question.
	PainPoints = []string{PainMessages, PainData, PainDeadlines, PainDocuments, PainCopying}
	// TimeSpents are the accepted answers to the third question.
	TimeSpents = []string{TimeLow, TimeMedium, TimeHigh}
)

// ActionKind is the closed set of inbound events. Anything the parser does not
// recognise becomes ActionUnknown, which no state accepts.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionStart
	ActionStartQuiz
	ActionRemindLater
	ActionEmotion
	ActionPain
	ActionTime
	ActionConsultation
	ActionPDF
	ActionLater
	ActionReminderYes
	ActionReminderNo
	ActionCancel
	ActionHelp
)

var actionKindNames = map[ActionKind]string{
	ActionUnknown:      "unknown",
	ActionStart:        "start",
	ActionStartQuiz:    "start_quiz",
	ActionRemindLater:  "remind_later",
	ActionEmotion:      "emotion",
	ActionPain:         "pain",
	ActionTime:         "time",
	ActionConsultation: "action_consultation",
	ActionPDF:          "action_pdf",
	ActionLater:        "action_later",
	ActionReminderYes:  "reminder_yes",
	ActionReminderNo:   "reminder_no",
	ActionCancel:       "cancel",
	ActionHelp:         "help",
}

// String returns a low-cardinality name suitable for metric labels.
func (k ActionKind) String() string {
	if n, ok := actionKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Action is a parsed inbound event. Value carries the answer code for
// ActionEmotion, ActionPain and ActionTime and is empty otherwise.
type Action struct {
	Kind  ActionKind
	Value string
	Raw   string
}

var exactActions = map[string]ActionKind{
	"start":               ActionStart,
	"/start":              ActionStart,
	"start_quiz":          ActionStartQuiz,
	"remind_later":        ActionRemindLater,
	"action_consultation": ActionConsultation,
	"action_pdf":          ActionPDF,
	"action_later":        ActionLater,
	"reminder_yes":        ActionReminderYes,
	"reminder_no":         ActionReminderNo,
	"cancel":              ActionCancel,
	"/cancel":             ActionCancel,
	"help":                ActionHelp,
	"/help":               ActionHelp,
}

// ParseAction maps a raw action code onto the closed Action variant.
// Prefixed answer codes are accepted only for the documented option values.
func ParseAction(code string) Action {
	raw := code
	code = strings.TrimSpace(code)
	if k, ok := exactActions[code]; ok {
		return Action{Kind: k, Raw: raw}
	}
	switch {
	case contains(Emotions, code):
		return Action{Kind: ActionEmotion, Value: code, Raw: raw}
	case contains(PainPoints, code):
		return Action{Kind: ActionPain, Value: code, Raw: raw}
	case contains(TimeSpents, code):
		return Action{Kind: ActionTime, Value: code, Raw: raw}
	}
	return Action{Kind: ActionUnknown, Raw: raw}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Options returns the accepted answer codes for f, or nil for unknown fields.
func (f AnswerField) Options() []string {
	switch f {
	case FieldEmotion:
		return Emotions
	case FieldPainPoint:
		return PainPoints
	case FieldTimeSpent:
		return TimeSpents
	}
	return nil
}

// Accepts reports whether value is a documented option for f.
func (f AnswerField) Accepts(value string) bool {
	return contains(f.Options(), value)
}
