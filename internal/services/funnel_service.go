// Package services – FunnelService
//
// FunnelService is the conversation state machine. It parses the inbound
// action code into a closed domain.Action, looks the pair (current state,
// action kind) up in a fixed transition table, and applies the accepted
// transition through AnswerStore.ApplyTransition. Anything the table does not
// list is rejected with ErrInvalidTransition and nothing is written.
//
// Side effects beyond the store happen after the transition has committed and
// outside any store lock: lead dispatch on action_consultation and the
// reminder hand-off on reminder_yes. Neither can fail the event.
//
// The machine never sleeps. Presentation pacing is returned as Reply.Delay
// for the transport to apply.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/insight"
	"github.com/tbourn/vibe-compass/internal/repo"
)

// Reply selectors. The transport maps each one to its own copy.
const (
	SelectorIntro             = "intro"
	SelectorAskEmotion        = "ask_emotion"
	SelectorAckEmotionPrefix  = "ack_"
	SelectorAskPain           = "ask_pain"
	SelectorAskTime           = "ask_time"
	SelectorInsight           = "insight"
	SelectorOffer             = "offer"
	SelectorConversion        = "conversion"
	SelectorPDF               = "pdf"
	SelectorRemindLater       = "remind_later"
	SelectorReminderScheduled = "reminder_scheduled"
	SelectorThankYou          = "thank_you"
	SelectorCancelled         = "cancelled"
	SelectorReminder          = "reminder"
	SelectorUseButtons        = "use_buttons"
	SelectorHelp              = "help"
)

// Keyboards name the button sets a reply carries.
const (
	KeyboardStart       = "start"
	KeyboardEmotion     = "emotion"
	KeyboardPainPoint   = "pain_point"
	KeyboardTime        = "time"
	KeyboardOffer       = "offer"
	KeyboardReminder    = "reminder"
	KeyboardBackToStart = "back_to_start"
)

const (
	defaultQuestionDelay = 1500 * time.Millisecond
	defaultOfferDelay    = 2 * time.Second
	defaultReminderDelay = 24 * time.Hour
	defaultEventTTL      = 24 * time.Hour
)

// Event is one inbound action for identity. Key, when set, is the transport's
// delivery id and makes redeliveries no-ops.
type Event struct {
	Identity string
	Contact  domain.Contact
	Action   string
	Key      string
}

// Reply is one piece of outgoing content for the transport to render.
type Reply struct {
	Selector string
	Keyboard string
	Text     string
	Delay    time.Duration
}

// Response is the machine's answer to an accepted event.
type Response struct {
	State     domain.State
	Replies   []Reply
	Duplicate bool
	Lead      *domain.DispatchOutcome
}

type effect int

const (
	effectNone effect = iota
	effectDispatchLead
	effectScheduleReminder
	// effectReadOnly answers without touching the store.
	effectReadOnly
)

// rule is one row of the transition table.
type rule struct {
	to     domain.State
	reset  bool
	answer domain.AnswerField
	status domain.ConversionStatus
	effect effect
}

// transitions lists every accepted (state, action) pair. cancel and help are
// accepted from any state and handled separately.
var transitions = map[domain.State]map[domain.ActionKind]rule{
	domain.StateStart: {
		domain.ActionStart:       {to: domain.StateStart},
		domain.ActionStartQuiz:   {to: domain.StateQEmotion, reset: true},
		domain.ActionRemindLater: {to: domain.StateComplete, status: domain.StatusPostponed},
	},
	domain.StateQEmotion: {
		domain.ActionEmotion: {to: domain.StateQPain, answer: domain.FieldEmotion},
	},
	domain.StateQPain: {
		domain.ActionPain: {to: domain.StateQTime, answer: domain.FieldPainPoint},
	},
	domain.StateQTime: {
		domain.ActionTime: {to: domain.StateOffer, answer: domain.FieldTimeSpent},
	},
	domain.StateOffer: {
		domain.ActionConsultation: {to: domain.StateEnded, status: domain.StatusConverted, effect: effectDispatchLead},
		domain.ActionPDF:          {to: domain.StateEnded, status: domain.StatusPDFDownloaded},
		domain.ActionLater:        {to: domain.StateComplete, status: domain.StatusPostponed},
	},
	domain.StateComplete: {
		domain.ActionReminderYes: {to: domain.StateEnded, effect: effectScheduleReminder},
		domain.ActionReminderNo:  {to: domain.StateEnded},
		domain.ActionStartQuiz:   {to: domain.StateQEmotion, reset: true},
		domain.ActionStart:       {to: domain.StateStart},
	},
	domain.StateEnded: {
		domain.ActionStart:     {to: domain.StateStart},
		domain.ActionStartQuiz: {to: domain.StateQEmotion, reset: true},
	},
}

var cancelRule = rule{to: domain.StateEnded}

// lookup returns the rule for (from, kind), if any.
func lookup(from domain.State, kind domain.ActionKind) (rule, bool) {
	switch kind {
	case domain.ActionCancel:
		return cancelRule, true
	case domain.ActionHelp:
		return rule{to: from, effect: effectReadOnly}, true
	}
	r, ok := transitions[from][kind]
	return r, ok
}

// Accepts reports whether the table accepts kind in state from.
func Accepts(from domain.State, kind domain.ActionKind) bool {
	_, ok := lookup(from, kind)
	return ok
}

// FunnelService wires the state machine to its collaborators.
type FunnelService struct {
	Store      *AnswerStore
	Dispatcher Dispatcher
	Reminders  ReminderScheduler

	QuestionDelay time.Duration
	OfferDelay    time.Duration
	ReminderDelay time.Duration
	EventTTL      time.Duration

	// Now is overridable in tests.
	Now func() time.Time
}

// NewFunnelService returns a service with the default pacing. dispatcher and
// reminders may be nil; a nil dispatcher behaves as a log-only sink.
func NewFunnelService(store *AnswerStore, dispatcher Dispatcher, reminders ReminderScheduler) *FunnelService {
	if dispatcher == nil {
		dispatcher = NewLeadDispatcher(nil, nil, 0)
	}
	return &FunnelService{
		Store:         store,
		Dispatcher:    dispatcher,
		Reminders:     reminders,
		QuestionDelay: defaultQuestionDelay,
		OfferDelay:    defaultOfferDelay,
		ReminderDelay: defaultReminderDelay,
		EventTTL:      defaultEventTTL,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes one inbound event.
//
// Errors:
//   - ErrEmptyIdentity for a blank identity.
//   - ErrInvalidTransition when the action is not accepted in the current
//     state, including a concurrent duplicate that lost the race.
//   - persistence errors, wrapped; nothing was applied.
func (s *FunnelService) Handle(ctx context.Context, ev Event) (*Response, error) {
	action := domain.ParseAction(ev.Action)

	tr := otel.Tracer("services/FunnelService")
	ctx, span := tr.Start(ctx, "Handle", trace.WithAttributes(
		attribute.String("profile.identity", ev.Identity),
		attribute.String("funnel.action", action.Kind.String()),
	))
	defer span.End()

	identity := strings.TrimSpace(ev.Identity)
	if identity == "" {
		return nil, ErrEmptyIdentity
	}

	if ev.Key != "" {
		rec, err := repo.GetProcessedEvent(ctx, s.Store.DB, identity, ev.Key, s.Now())
		if err == nil {
			return &Response{State: rec.State, Duplicate: true}, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("lookup processed event: %w", err)
		}
	}

	p, err := s.Store.GetOrCreate(ctx, identity, ev.Contact)
	if err != nil {
		funnelTransitions.WithLabelValues("unknown", action.Kind.String(), "error").Inc()
		return nil, fmt.Errorf("load profile: %w", err)
	}

	from := p.State
	span.SetAttributes(attribute.String("funnel.from", string(from)))

	r, ok := lookup(from, action.Kind)
	if !ok {
		funnelTransitions.WithLabelValues(string(from), action.Kind.String(), "rejected").Inc()
		return nil, ErrInvalidTransition
	}
	if r.effect == effectReadOnly {
		funnelTransitions.WithLabelValues(string(from), action.Kind.String(), "accepted").Inc()
		return &Response{State: from, Replies: []Reply{{Selector: SelectorHelp, Keyboard: keyboardFor(from)}}}, nil
	}

	t := Transition{To: r.to, Reset: r.reset, Status: r.status}
	if r.answer != "" {
		t.Answer = &AnswerUpdate{Field: r.answer, Value: action.Value}
	}
	if merged := p.Contact().Merge(ev.Contact); merged != p.Contact() {
		t.Contact = &merged
	}

	updated, err := s.Store.ApplyTransition(ctx, identity, from, t)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrInvalidTransition) {
			result = "rejected"
		}
		funnelTransitions.WithLabelValues(string(from), action.Kind.String(), result).Inc()
		if result == "rejected" {
			return nil, err
		}
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	funnelTransitions.WithLabelValues(string(from), action.Kind.String(), "accepted").Inc()
	log.Debug().
		Str("identity", identity).
		Str("from", string(from)).
		Str("to", string(updated.State)).
		Str("action", action.Kind.String()).
		Msg("transition applied")

	resp := &Response{State: updated.State, Replies: s.replies(action, updated)}

	switch r.effect {
	case effectDispatchLead:
		out := s.dispatch(ctx, updated)
		resp.Lead = &out
	case effectScheduleReminder:
		s.scheduleReminder(ctx, identity)
	}

	if ev.Key != "" {
		if _, err := repo.CreateProcessedEvent(ctx, s.Store.DB, identity, ev.Key, ev.Action, updated.State, s.EventTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Warn().Err(err).Str("identity", identity).Msg("processed event not recorded")
		}
	}
	return resp, nil
}

// Reminder is invoked when a scheduled reminder falls due. It moves a profile
// that is resting in complete or ended back to start and returns the
// reminder reply. Profiles already back in the funnel, or that converted or
// took the PDF since, get no reminder and a nil response.
func (s *FunnelService) Reminder(ctx context.Context, identity string) (*Response, error) {
	p, err := s.Store.Get(ctx, identity)
	if err != nil {
		return nil, err
	}
	switch p.State {
	case domain.StateComplete, domain.StateEnded:
	default:
		return nil, nil
	}
	if p.ConversionStatus != nil && (*p.ConversionStatus == domain.StatusConverted || *p.ConversionStatus == domain.StatusPDFDownloaded) {
		return nil, nil
	}
	updated, err := s.Store.ApplyTransition(ctx, identity, p.State, Transition{To: domain.StateStart})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, nil
		}
		return nil, err
	}
	return &Response{
		State:   updated.State,
		Replies: []Reply{{Selector: SelectorReminder, Keyboard: KeyboardStart}},
	}, nil
}

func (s *FunnelService) dispatch(ctx context.Context, p *domain.UserProfile) domain.DispatchOutcome {
	out := s.Dispatcher.Dispatch(ctx, domain.NewLeadRecord(p))
	if err := s.Store.MarkLeadSent(ctx, p.Identity); err != nil {
		log.Error().Err(err).Str("identity", p.Identity).Msg("lead_sent not recorded")
	}
	return out
}

func (s *FunnelService) scheduleReminder(ctx context.Context, identity string) {
	if s.Reminders == nil {
		log.Info().Str("identity", identity).Msg("reminder requested but no scheduler configured")
		return
	}
	due := s.Now().Add(s.ReminderDelay)
	if err := s.Reminders.Schedule(ctx, identity, due); err != nil {
		log.Error().Err(err).Str("identity", identity).Time("due_at", due).Msg("reminder hand-off failed")
	}
}

func (s *FunnelService) replies(a domain.Action, p *domain.UserProfile) []Reply {
	switch a.Kind {
	case domain.ActionStart:
		return []Reply{{Selector: SelectorIntro, Keyboard: KeyboardStart}}
	case domain.ActionStartQuiz:
		return []Reply{{Selector: SelectorAskEmotion, Keyboard: KeyboardEmotion}}
	case domain.ActionRemindLater, domain.ActionLater:
		return []Reply{{Selector: SelectorRemindLater, Keyboard: KeyboardReminder}}
	case domain.ActionEmotion:
		return []Reply{
			{Selector: SelectorAckEmotionPrefix + a.Value},
			{Selector: SelectorAskPain, Keyboard: KeyboardPainPoint, Delay: s.QuestionDelay},
		}
	case domain.ActionPain:
		return []Reply{{Selector: SelectorAskTime, Keyboard: KeyboardTime}}
	case domain.ActionTime:
		return []Reply{
			{Selector: SelectorInsight, Text: insight.Generate(p.Answer(domain.FieldPainPoint), a.Value)},
			{Selector: SelectorOffer, Keyboard: KeyboardOffer, Delay: s.OfferDelay},
		}
	case domain.ActionConsultation:
		return []Reply{{Selector: SelectorConversion}}
	case domain.ActionPDF:
		return []Reply{{Selector: SelectorPDF}}
	case domain.ActionReminderYes:
		return []Reply{{Selector: SelectorReminderScheduled}}
	case domain.ActionReminderNo:
		return []Reply{{Selector: SelectorThankYou, Keyboard: KeyboardBackToStart}}
	case domain.ActionCancel:
		return []Reply{{Selector: SelectorCancelled}}
	}
	return nil
}

// keyboardFor names the buttons that are live in state, so a help reply can
// put them back on screen.
func keyboardFor(state domain.State) string {
	switch state {
	case domain.StateQEmotion:
		return KeyboardEmotion
	case domain.StateQPain:
		return KeyboardPainPoint
	case domain.StateQTime:
		return KeyboardTime
	case domain.StateOffer:
		return KeyboardOffer
	case domain.StateComplete:
		return KeyboardReminder
	case domain.StateEnded:
		return KeyboardBackToStart
	}
	return KeyboardStart
}
