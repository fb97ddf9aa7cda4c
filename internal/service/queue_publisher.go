// Package service holds outbound integrations used by handlers that are
// not part of the request/response path.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/car-dealership/internal/queue"
)

// EventPublisher publishes domain events.  Callers treat failures as
// best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// dialTimeout bounds how long a publish waits for an unreachable broker.
const dialTimeout = 2 * time.Second

// RabbitPublisher publishes persistent JSON messages to a durable queue
// through the default exchange.  The connection is opened lazily and
// reopened after it drops.
type RabbitPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewRabbitPublisher(url, queueName string) *RabbitPublisher {
	return &RabbitPublisher{url: url, queue: queueName}
}

func (p *RabbitPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// Publish sends ev to the configured queue.
func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.Event) error {
	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// LogPublisher only logs events; it is used when the broker is disabled.
type LogPublisher struct{ Logger *slog.Logger }

func (p LogPublisher) Publish(_ context.Context, ev queue.Event) error {
	lg := p.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.Debug("event", "type", ev.Type, "booking_id", ev.BookingID, "contact_id", ev.ContactID)
	return nil
}
