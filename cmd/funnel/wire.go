package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/vibe-compass/internal/config"
	"github.com/tbourn/vibe-compass/internal/integration/amocrm"
	"github.com/tbourn/vibe-compass/internal/integration/webhook"
	"github.com/tbourn/vibe-compass/internal/notify"
	"github.com/tbourn/vibe-compass/internal/reminder"
	"github.com/tbourn/vibe-compass/internal/repo"
	"github.com/tbourn/vibe-compass/internal/services"
)

// application holds the wired funnel and whatever needs closing on exit.
type application struct {
	Funnel  *services.FunnelService
	closers []func() error
}

// Close releases collaborators in reverse order of creation.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

func openDB() (*gorm.DB, error) {
	db, err := repo.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return nil, fmt.Errorf("enable db tracing: %w", err)
		}
	}
	return db, nil
}

// closeDB releases the connection pool behind db.
func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn().Err(err).Msg("database handle")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}

// wire builds the funnel and its collaborators from cfg. Consumers it starts
// stop when ctx is done.
func wire(ctx context.Context, db *gorm.DB) (*application, error) {
	app := &application{}

	dispatcher := services.NewLeadDispatcher(leadSink(cfg.CRM), leadNotifier(cfg.SMTP), cfg.CRM.Timeout)
	funnel := services.NewFunnelService(services.NewAnswerStore(db), dispatcher, nil)
	funnel.QuestionDelay = cfg.Pacing.QuestionDelay
	funnel.OfferDelay = cfg.Pacing.OfferDelay
	funnel.ReminderDelay = cfg.Reminder.Delay
	funnel.EventTTL = cfg.IdempotencyTTL
	app.Funnel = funnel

	handle := reminderHandler(funnel, cfg.Reminder.CallbackURL, cfg.CRM.Timeout)

	if cfg.Reminder.AMQPURL == "" {
		timers := reminder.NewTimers(handle)
		funnel.Reminders = timers
		app.closers = append(app.closers, func() error { timers.Stop(); return nil })
		log.Info().Msg("reminders kept in process memory")
		return app, nil
	}

	broker, err := reminder.Dial(cfg.Reminder.AMQPURL, cfg.Reminder.Queue)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, broker.Close)
	funnel.Reminders = reminder.NewPublisher(broker)

	consumeCh, err := broker.Conn.Channel()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}
	consumer := &reminder.Consumer{Ch: consumeCh, Queue: broker.Topology.ReadyQueue, Handle: handle}
	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("reminder consumer stopped")
		}
	}()
	return app, nil
}

// leadSink selects the CRM client; nil means log-only delivery.
func leadSink(c config.CRMConfig) services.LeadSink {
	switch c.Provider {
	case config.CRMAmo:
		return amocrm.NewClient(c.AmoDomain, c.AmoToken, c.Timeout)
	case config.CRMWebhook:
		return webhook.NewClient(c.WebhookURL, c.Secret, c.Timeout)
	}
	return nil
}

func leadNotifier(c config.SMTPConfig) services.Notifier {
	if !c.Enabled() {
		return nil
	}
	return notify.NewMailer(c.Host, c.Port, c.User, c.Password, c.From, c.To)
}

// reminderPush is posted to the transport when a reminder falls due.
type reminderPush struct {
	Identity string      `json:"identity"`
	State    string      `json:"state"`
	Replies  []pushReply `json:"replies"`
}

type pushReply struct {
	Selector string `json:"selector"`
	Keyboard string `json:"keyboard,omitempty"`
}

func newReminderPush(identity string, resp *services.Response) reminderPush {
	out := reminderPush{Identity: identity, State: string(resp.State)}
	for _, r := range resp.Replies {
		out.Replies = append(out.Replies, pushReply{Selector: r.Selector, Keyboard: r.Keyboard})
	}
	return out
}

// reminderHandler moves the profile back to start and, when a callback URL is
// configured, pushes the reminder reply to the transport.
func reminderHandler(funnel *services.FunnelService, callbackURL string, timeout time.Duration) reminder.Handler {
	var push *webhook.Client
	if callbackURL != "" {
		push = webhook.NewClient(callbackURL, "", timeout)
	}
	return func(ctx context.Context, identity string) error {
		resp, err := funnel.Reminder(ctx, identity)
		if err != nil || resp == nil {
			return err
		}
		if push == nil {
			log.Info().Str("identity", identity).Msg("reminder due; no callback configured")
			return nil
		}
		return push.PostJSON(ctx, newReminderPush(identity, resp))
	}
}
