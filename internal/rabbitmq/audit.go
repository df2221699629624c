package rabbitmq

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"realtime-service/internal/observability"
)

// AuditPublisher ships connection audit records to the audit exchange.
// It implements observability.AuditSink.
type AuditPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAuditPublisher connects to RabbitMQ and declares the audit exchange.
func NewAuditPublisher(amqpURL, exchange string) (*AuditPublisher, error) {
	conn, ch, err := dial(amqpURL, exchange)
	if err != nil {
		return nil, err
	}
	return &AuditPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AuditPublisher) Publish(ctx context.Context, routingKey string, audit observability.ConnectionAudit, headers map[string]interface{}) error {
	body, err := json.Marshal(audit)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table(headers),
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq audit publish failed: %v", err)
	}
	return err
}

func (p *AuditPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
