package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Timers schedules reminders with in-process timers. A newer reminder for the
// same identity replaces the pending one.
type Timers struct {
	mu      sync.Mutex
	pending map[string]*pendingReminder
	handle  Handler
	now     func() time.Time
	stopped bool
}

type pendingReminder struct {
	timer *time.Timer
}

// NewTimers returns an in-memory scheduler calling h.
func NewTimers(h Handler) *Timers {
	return &Timers{
		pending: make(map[string]*pendingReminder),
		handle:  h,
		now:     time.Now,
	}
}

// Schedule implements services.ReminderScheduler.
func (t *Timers) Schedule(_ context.Context, identity string, dueAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return context.Canceled
	}
	if old, ok := t.pending[identity]; ok {
		old.timer.Stop()
	}
	delay := dueAt.Sub(t.now())
	if delay < 0 {
		delay = 0
	}
	p := &pendingReminder{}
	p.timer = time.AfterFunc(delay, func() { t.fire(identity, p) })
	t.pending[identity] = p
	return nil
}

func (t *Timers) fire(identity string, p *pendingReminder) {
	t.mu.Lock()
	if t.pending[identity] == p {
		delete(t.pending, identity)
	}
	t.mu.Unlock()

	if err := t.handle(context.Background(), identity); err != nil {
		log.Error().Err(err).Str("identity", identity).Msg("reminder handler failed")
	}
}

// Pending reports how many reminders are waiting.
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Stop cancels every pending reminder. Later Schedule calls fail.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.pending {
		p.timer.Stop()
		delete(t.pending, id)
	}
	t.stopped = true
}
