package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher emits booking lifecycle events for external consumers. Publish
// failures are the caller's to log and ignore: events are observational and
// must never block or fail the booking flow itself.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error
	PublishBookingFailed(ctx context.Context, event BookingFailedEvent) error
	PublishHoldExpired(ctx context.Context, event HoldExpiredEvent) error
	Close() error
}

type amqpPublisher struct {
	conn *amqp.Connection
	log  *zap.Logger
}

// NewAMQPPublisher connects to RabbitMQ and returns a publisher that writes
// persistent JSON messages to one durable queue per event type.
func NewAMQPPublisher(url string, log *zap.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	return &amqpPublisher{
		conn: conn,
		log:  log.With(zap.String("publisher", "amqp")),
	}, nil
}

func (p *amqpPublisher) PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error {
	return p.publish(ctx, QueueBookingConfirmed, event)
}

func (p *amqpPublisher) PublishBookingFailed(ctx context.Context, event BookingFailedEvent) error {
	return p.publish(ctx, QueueBookingFailed, event)
}

func (p *amqpPublisher) PublishHoldExpired(ctx context.Context, event HoldExpiredEvent) error {
	return p.publish(ctx, QueueHoldExpired, event)
}

func (p *amqpPublisher) publish(ctx context.Context, queueName string, event any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		p.log.Error("Failed to open channel", zap.Error(err), zap.String("queue", queueName))
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	// Durable queue so messages survive broker restarts. Declare is idempotent.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.log.Error("Failed to declare queue", zap.Error(err), zap.String("queue", queueName))
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.log.Error("Failed to publish event", zap.Error(err), zap.String("queue", queueName))
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}

	return nil
}

func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}

// NoopPublisher drops all events. Used when no broker is configured and in
// tests that do not assert on events.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmedEvent) error {
	return nil
}
func (NoopPublisher) PublishBookingFailed(context.Context, BookingFailedEvent) error { return nil }
func (NoopPublisher) PublishHoldExpired(context.Context, HoldExpiredEvent) error     { return nil }
func (NoopPublisher) Close() error                                                   { return nil }
