package rabbitmq

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// Publisher publishes messages to the exchange, using the topic as routing key.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewPublisher opens a dedicated channel for publishing.
func NewPublisher(conn *Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return &Publisher{channel: ch, exchange: conn.Exchange}, nil
}

// Publish sends body to topic. Every message gets a fresh message id, which
// consumers use for deduplication.
func (p *Publisher) Publish(ctx context.Context, topic string, body []byte, correlationID string) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	messageID := uuid.New().String()
	log.Printf("[Publisher] Publishing message: topic=%s message_id=%s correlation_id=%s", topic, messageID, correlationID)

	return p.channel.PublishWithContext(
		ctx,
		p.exchange,
		topic,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			MessageId:     messageID,
			CorrelationId: correlationID,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
		},
	)
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
