package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads events from a durable queue and appends one line per
// event to <LogDir>/events.log.
type Consumer struct {
	URL    string
	Queue  string
	LogDir string
	Logger *slog.Logger
}

// Run connects to RabbitMQ and consumes until ctx is cancelled,
// reconnecting with exponential back-off (capped at 30s) when the broker
// is unreachable or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	lg := c.Logger
	if lg == nil {
		lg = slog.Default()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			lg.Warn("event consumer dial failed", "err", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn, lg)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lg.Warn("event consumer loop ended; reconnecting", "err", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, lg *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		lg.Warn("event consumer set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				lg.Error("event consumer handle message failed", "err", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, "events.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as one human-readable log line ending in "\n".
func FormatLine(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type)
	field := func(k string, v uint64) {
		if v != 0 {
			fmt.Fprintf(&b, " | %s=%d", k, v)
		}
	}
	field("booking_id", ev.BookingID)
	field("contact_id", ev.ContactID)
	field("user_id", ev.UserID)
	field("car_id", ev.CarID)
	if ev.BookingType != "" {
		fmt.Fprintf(&b, " | booking_type=%s", ev.BookingType)
	}
	if ev.Email != "" {
		fmt.Fprintf(&b, " | email=%q", ev.Email)
	}
	if ev.HasFile {
		b.WriteString(" | attachment=yes")
	}
	b.WriteString("\n")
	return b.String()
}
