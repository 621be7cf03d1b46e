package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Topology names the exchanges and queues derived from the ready queue name.
//
// Reminders are published to DelayExchange with a per-message TTL. When the
// TTL expires RabbitMQ dead-letters them into ReadyExchange, bound to
// ReadyQueue. Messages the consumer rejects go to DeadQueue via DLX.
type Topology struct {
	DelayExchange string
	DelayQueue    string
	ReadyExchange string
	ReadyQueue    string
	DLX           string
	DeadQueue     string
	RoutingKey    string
}

// NewTopology derives the full topology from the ready queue name.
func NewTopology(queue string) Topology {
	if queue == "" {
		queue = "q.reminders"
	}
	return Topology{
		DelayExchange: "ex.reminders.delay",
		DelayQueue:    queue + ".delay",
		ReadyExchange: "ex.reminders",
		ReadyQueue:    queue,
		DLX:           "ex.reminders.dlx",
		DeadQueue:     queue + ".dlq",
		RoutingKey:    "k.reminder",
	}
}

// declarer is the subset of *amqp.Channel used to declare the topology.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare creates the exchanges, queues and bindings. It is idempotent.
func (t Topology) Declare(ch declarer) error {
	for _, ex := range []string{t.DLX, t.ReadyExchange, t.DelayExchange} {
		if err := ch.ExchangeDeclare(ex, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}
	queues := []struct {
		name, exchange string
		args           amqp.Table
	}{
		{t.DeadQueue, t.DLX, nil},
		{t.ReadyQueue, t.ReadyExchange, amqp.Table{
			"x-dead-letter-exchange":    t.DLX,
			"x-dead-letter-routing-key": t.RoutingKey,
		}},
		{t.DelayQueue, t.DelayExchange, amqp.Table{
			"x-dead-letter-exchange":    t.ReadyExchange,
			"x-dead-letter-routing-key": t.RoutingKey,
		}},
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, t.RoutingKey, q.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q.name, err)
		}
	}
	return nil
}

// Broker owns the AMQP connection and channel.
type Broker struct {
	Conn     *amqp.Connection
	Ch       *amqp.Channel
	Topology Topology
}

// Dial connects to url and declares the reminder topology.
func Dial(url, queue string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	topo := NewTopology(queue)
	if err := topo.Declare(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Broker{Conn: conn, Ch: ch, Topology: topo}, nil
}

// Close closes the channel and the connection.
func (b *Broker) Close() error {
	_ = b.Ch.Close()
	return b.Conn.Close()
}

// publisher is the subset of *amqp.Channel used to publish.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher schedules reminders through the delay queue.
type Publisher struct {
	ch   publisher
	topo Topology
	now  func() time.Time
}

// NewPublisher returns a scheduler publishing on b's channel.
func NewPublisher(b *Broker) *Publisher {
	return &Publisher{ch: b.Ch, topo: b.Topology, now: time.Now}
}

// Schedule implements services.ReminderScheduler.
func (p *Publisher) Schedule(ctx context.Context, identity string, dueAt time.Time) error {
	msg := Message{ID: uuid.NewString(), Identity: identity, DueAt: dueAt.UTC()}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}
	ttl := dueAt.Sub(p.now()).Milliseconds()
	if ttl < 0 {
		ttl = 0
	}
	err = p.ch.PublishWithContext(ctx,
		p.topo.DelayExchange,
		p.topo.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    msg.ID,
			Expiration:   strconv.FormatInt(ttl, 10),
			Timestamp:    p.now().UTC(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish reminder: %w", err)
	}
	return nil
}

// Consumer reads due reminders from the ready queue.
type Consumer struct {
	Ch     *amqp.Channel
	Queue  string
	Handle Handler
}

// Run consumes until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.Ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	log.Info().Str("queue", c.Queue).Msg("reminder consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.deliver(ctx, d)
		}
	}
}

// deliver handles one message. Malformed messages and handler failures are
// rejected without requeue so they land in the dead-letter queue.
func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	m, err := decode(d.Body)
	if err != nil {
		log.Error().Err(err).Str("message_id", d.MessageId).Msg("malformed reminder")
		_ = d.Nack(false, false)
		return
	}
	if err := c.Handle(ctx, m.Identity); err != nil {
		log.Error().Err(err).Str("identity", m.Identity).Msg("reminder handler failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
