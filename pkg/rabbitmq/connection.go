package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialAttempts = 30
	dialBackoff  = 2 * time.Second
)

// Connection wraps an AMQP connection and the name of the topic exchange every
// publisher and consumer on it shares.
type Connection struct {
	URL      string
	Exchange string
	Conn     *amqp.Connection
}

// Connect dials the broker with retries until it answers or ctx is done.
func Connect(ctx context.Context, url, exchange string) (*Connection, error) {
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			log.Printf("[RabbitMQ] Connected exchange=%s", exchange)
			return &Connection{URL: url, Exchange: exchange, Conn: conn}, nil
		}

		log.Printf("[RabbitMQ] Dial failed: %v attempt=%d, retrying in %s...", err, attempt, dialBackoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}

	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", dialAttempts, err)
}

// Channel opens a new AMQP channel and declares the topic exchange on it.
func (c *Connection) Channel() (*amqp.Channel, error) {
	ch, err := c.Conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		c.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", c.Exchange, err)
	}
	return ch, nil
}

// Close closes the connection.
func (c *Connection) Close() error {
	if c.Conn != nil {
		return c.Conn.Close()
	}
	return nil
}
