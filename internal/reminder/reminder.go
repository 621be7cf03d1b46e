// Package reminder delivers deferred "come back later" reminders. The funnel
// hands over (identity, due time); this package calls a Handler once the due
// time has passed.
//
// Two schedulers are provided: Timers keeps pending reminders in process
// memory (lost on restart), Publisher parks them in a RabbitMQ delay queue
// that dead-letters into the queue a Consumer reads.
package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Handler is invoked when a reminder falls due.
type Handler func(ctx context.Context, identity string) error

// Message is the queued form of a reminder.
type Message struct {
	ID       string    `json:"id"`
	Identity string    `json:"identity"`
	DueAt    time.Time `json:"due_at"`
}

// ErrInvalidMessage is returned for reminders without an identity.
var ErrInvalidMessage = errors.New("reminder: invalid message")

func decode(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(m.Identity) == "" {
		return Message{}, ErrInvalidMessage
	}
	return m, nil
}
