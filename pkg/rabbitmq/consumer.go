package rabbitmq

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerConfig describes a subscription: a durable queue bound to one or more
// topics, with its own dead-letter queue.
type ConsumerConfig struct {
	QueueName    string
	DLQName      string
	RoutingKeys  []string
	ConsumerName string
	// Prefetch defaults to 1.
	Prefetch int
}

// MessageHandler processes one delivery. A nil return acks it; an error nacks
// it without requeue, which routes it to the dead-letter queue.
type MessageHandler func(delivery amqp.Delivery) error

// declareTopology creates the dead-letter queue, the subscription queue and its
// bindings. Declarations are idempotent.
func declareTopology(ch *amqp.Channel, exchange string, cfg ConsumerConfig) error {
	if _, err := ch.QueueDeclare(cfg.DLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue %s: %w", cfg.DLQName, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DLQName,
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}

	for _, key := range cfg.RoutingKeys {
		if err := ch.QueueBind(cfg.QueueName, key, exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", cfg.QueueName, key, err)
		}
	}
	return nil
}

// SetupConsumer declares the subscription and starts consuming it until ctx is
// done. Deliveries are handled one at a time in a single goroutine.
func SetupConsumer(ctx context.Context, conn *Connection, cfg ConsumerConfig, handler MessageHandler) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	if err := declareTopology(ch, conn.Exchange, cfg); err != nil {
		ch.Close()
		return err
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return err
	}

	msgs, err := ch.Consume(cfg.QueueName, cfg.ConsumerName, false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		ch.Close()
	}()

	go func() {
		for msg := range msgs {
			settle(cfg.ConsumerName, msg, handler)
		}
		log.Printf("[%s] Delivery channel closed", cfg.ConsumerName)
	}()

	log.Printf("[%s] Consumer started, listening on queue: %s", cfg.ConsumerName, cfg.QueueName)
	return nil
}

// settle runs handler and acks or nacks the delivery. A panicking handler
// dead-letters the delivery instead of killing the consumer.
func settle(name string, msg amqp.Delivery, handler MessageHandler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] Handler panic: %v message_id=%s, nacking to DLQ", name, r, msg.MessageId)
			_ = msg.Nack(false, false)
		}
	}()

	log.Printf("[%s] Received message: routing_key=%s message_id=%s correlation_id=%s",
		name, msg.RoutingKey, msg.MessageId, msg.CorrelationId)

	if err := handler(msg); err != nil {
		log.Printf("[%s] Error processing message: %v message_id=%s, nacking to DLQ", name, err, msg.MessageId)
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}
