// Package services – LeadDispatcher
//
// LeadDispatcher turns a LeadRecord into a provider-agnostic LeadPayload and
// hands it to the configured LeadSink under a bounded timeout. It never
// returns an error: every attempt is classified into a DispatchOutcome,
// logged, counted and, when a Notifier is configured, reported to operators.
// The notifier gets the same timeout and cannot hold up the caller past it.
// A missing sink is a successful "logged only" delivery.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/vibe-compass/internal/domain"
)

const (
	defaultDispatchTimeout = 10 * time.Second
	leadTitlePrefix        = "Vibe lead: "
	unknownName            = "Unknown"
	noHandle               = "no_username"
	sinkNone               = "none"
)

// LeadSink delivers a payload to an external sales system.
type LeadSink interface {
	// Name is a short, stable label used in logs and metrics.
	Name() string
	// Send returns an error for non-2xx responses, network errors and timeouts.
	Send(ctx context.Context, p domain.LeadPayload) error
}

// Notifier reports dispatch attempts to an operator channel.
type Notifier interface {
	NotifyLead(ctx context.Context, p domain.LeadPayload, out domain.DispatchOutcome) error
}

// Dispatcher is the contract the state machine depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, lead domain.LeadRecord) domain.DispatchOutcome
}

// LeadDispatcher holds no mutable state between calls.
type LeadDispatcher struct {
	Sink     LeadSink
	Notifier Notifier
	Timeout  time.Duration

	// TitleLocale controls name casing in the lead title.
	TitleLocale language.Tag
}

// NewLeadDispatcher builds a dispatcher. sink and notifier may be nil.
func NewLeadDispatcher(sink LeadSink, notifier Notifier, timeout time.Duration) *LeadDispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &LeadDispatcher{
		Sink:        sink,
		Notifier:    notifier,
		Timeout:     timeout,
		TitleLocale: language.Und,
	}
}

// BuildPayload maps a lead onto the flat payload with human-readable labels.
func (d *LeadDispatcher) BuildPayload(l domain.LeadRecord) domain.LeadPayload {
	name := strings.TrimSpace(strings.Join([]string{l.DisplayName, l.LastName}, " "))
	if name == "" {
		name = unknownName
	} else {
		name = cases.Title(d.TitleLocale).String(name)
	}
	handle := noHandle
	if h := strings.TrimPrefix(strings.TrimSpace(l.Handle), "@"); h != "" {
		handle = "@" + h
	}
	return domain.LeadPayload{
		Title:          leadTitlePrefix + name,
		Name:           name,
		ContactHandle:  handle,
		PainPoint:      l.PainPoint,
		PainPointLabel: domain.PainLabel(l.PainPoint),
		TimeSpent:      l.TimeSpent,
		TimeSpentLabel: domain.TimeLabel(l.TimeSpent),
		Emotion:        l.Emotion,
		EmotionLabel:   domain.EmotionLabel(l.Emotion),
		ExternalID:     l.Identity,
		Price:          0,
	}
}

// Dispatch attempts delivery once. It does not retry.
func (d *LeadDispatcher) Dispatch(ctx context.Context, l domain.LeadRecord) domain.DispatchOutcome {
	sinkName := sinkNone
	if d.Sink != nil {
		sinkName = d.Sink.Name()
	}

	tr := otel.Tracer("services/LeadDispatcher")
	ctx, span := tr.Start(ctx, "Dispatch", trace.WithAttributes(
		attribute.String("profile.identity", l.Identity),
		attribute.String("lead.sink", sinkName),
	))
	defer span.End()

	p := d.BuildPayload(l)
	logger := log.With().Str("identity", l.Identity).Str("sink", sinkName).Logger()

	var out domain.DispatchOutcome
	if d.Sink == nil {
		logger.Info().
			Str("name", p.Name).
			Str("contact", p.ContactHandle).
			Str("pain_point", p.PainPointLabel).
			Str("time_spent", p.TimeSpentLabel).
			Str("emotion", p.EmotionLabel).
			Msg("new lead (no CRM configured)")
		out = domain.DispatchOutcome{Success: true, LoggedOnly: true, Detail: "no CRM configured, lead logged"}
		leadDispatches.WithLabelValues(sinkName, "logged_only").Inc()
	} else {
		// The conversation request may end before the sink answers; the
		// delivery keeps its own deadline instead.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Timeout)
		start := time.Now()
		err := d.Sink.Send(sendCtx, p)
		cancel()
		leadDispatchLatency.WithLabelValues(sinkName).Observe(time.Since(start).Seconds())

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lead dispatch failed")
			logger.Error().Err(err).Msg("lead dispatch failed")
			out = domain.DispatchOutcome{Success: false, Detail: err.Error()}
			leadDispatches.WithLabelValues(sinkName, "failure").Inc()
		} else {
			logger.Info().Msg("lead dispatched")
			out = domain.DispatchOutcome{Success: true, Detail: "delivered to " + sinkName}
			leadDispatches.WithLabelValues(sinkName, "success").Inc()
		}
	}

	if d.Notifier != nil {
		d.notify(ctx, logger, p, out)
	}
	return out
}

// notify waits for the notifier at most d.Timeout. A notifier that ignores
// its context is left running in the background.
func (d *LeadDispatcher) notify(ctx context.Context, logger zerolog.Logger, p domain.LeadPayload, out domain.DispatchOutcome) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Notifier.NotifyLead(nctx, p, out) }()

	select {
	case err := <-done:
		if err != nil {
			logger.Warn().Err(err).Msg("operator notification failed")
		}
	case <-nctx.Done():
		logger.Warn().Err(nctx.Err()).Dur("timeout", d.Timeout).Msg("operator notification abandoned")
	}
}
