package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"realtime-service/internal/models"
)

// QueuePublisher hands notifications that could not reach a live connection
// to the offline delivery channel (an email worker consuming the exchange).
type QueuePublisher interface {
	PublishQueued(ctx context.Context, n models.Notification) error
	Close() error
}

const queuedRoutingKey = "notifications.queued"

// NewQueuePublisher builds a RabbitMQ publisher or a noop publisher when
// AMQP is disabled or unreachable. Queued notifications are then only kept
// in the durable store.
func NewQueuePublisher(amqpURL, exchange string) QueuePublisher {
	conn, ch, err := dial(amqpURL, exchange)
	if err != nil {
		log.Printf("rabbitmq disabled, using noop: %v", err)
		return noopPublisher{reason: err.Error()}
	}

	log.Printf("rabbitmq connected exchange=%s", exchange)
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange}
}

// dial opens a connection and channel and declares the topic exchange.
func dial(amqpURL, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	if amqpURL == "" {
		return nil, nil, errors.New("empty amqp url")
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}

	return conn, ch, nil
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *amqpPublisher) PublishQueued(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, queuedRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq publish failed: %v", err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	reason string
}

func (noopPublisher) PublishQueued(ctx context.Context, n models.Notification) error {
	log.Printf("rabbitmq noop publish routing_key=%s recipient=%s type=%s", queuedRoutingKey, n.RecipientID, n.Type)
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// PublisherMode reports the publisher mode for logging.
func PublisherMode(p QueuePublisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}
