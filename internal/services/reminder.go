package services

import (
	"context"
	"time"
)

// ReminderScheduler accepts a deferred reminder for identity. The funnel only
// records the intent; delivery at dueAt is the scheduler's job.
type ReminderScheduler interface {
	Schedule(ctx context.Context, identity string, dueAt time.Time) error
}

// ReminderFunc adapts a plain function to ReminderScheduler.
type ReminderFunc func(ctx context.Context, identity string, dueAt time.Time) error

// Schedule calls f.
func (f ReminderFunc) Schedule(ctx context.Context, identity string, dueAt time.Time) error {
	return f(ctx, identity, dueAt)
}
