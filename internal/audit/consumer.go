// Package audit keeps an idempotent log of every message published on the
// customer lifecycle topic.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Name scopes the idempotency keys this consumer claims.
const Name = "audit"

// Consumer records lifecycle messages in customer_event_log.
type Consumer struct {
	DB *sql.DB
}

// NewConsumer creates a new audit consumer.
func NewConsumer(db *sql.DB) *Consumer {
	return &Consumer{DB: db}
}

// messageID picks the broker message id, falling back to the event id.
func messageID(delivery amqp.Delivery, entry models.LifecycleEntry) string {
	if delivery.MessageId != "" {
		return delivery.MessageId
	}
	return entry.EventID
}

// HandleMessage logs one lifecycle message. Redeliveries of an already logged
// message are acked without a second row.
func (c *Consumer) HandleMessage(delivery amqp.Delivery) error {
	ctx := context.Background()

	entry, err := models.ParseLifecycleEntry(delivery.Body)
	if err != nil {
		log.Printf("[Audit] Failed to parse message: %v correlation_id=%s", err, delivery.CorrelationId)
		return err
	}
	id := messageID(delivery, entry)
	if id == "" {
		log.Printf("[Audit] Message without id rejected: action=%s correlation_id=%s", entry.Action, delivery.CorrelationId)
		return errors.New("message has no id")
	}

	log.Printf("[Audit] Processing message: action=%s message_id=%s customer_id=%s correlation_id=%s",
		entry.Action, id, entry.CustomerID, delivery.CorrelationId)

	// Idempotency check
	var exists bool
	err = c.DB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM idempotency_keys WHERE consumer = $1 AND message_id = $2)", Name, id).Scan(&exists)
	if err != nil {
		log.Printf("[Audit] Error checking idempotency: %v correlation_id=%s", err, delivery.CorrelationId)
		return err
	}
	if exists {
		log.Printf("[Audit] Duplicate message ignored: message_id=%s correlation_id=%s", id, delivery.CorrelationId)
		return nil
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO customer_event_log (message_id, correlation_id, topic, action, customer_id, customer_email)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, delivery.CorrelationId, delivery.RoutingKey, entry.Action, entry.CustomerID, entry.Email,
	)
	if err != nil {
		log.Printf("[Audit] Error writing event log: %v correlation_id=%s", err, delivery.CorrelationId)
		return err
	}

	// Record idempotency key
	if _, err := tx.ExecContext(ctx, "INSERT INTO idempotency_keys (consumer, message_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", Name, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit transaction: %w", err)
	}

	log.Printf("[Audit] Logged: message_id=%s action=%s customer_id=%s correlation_id=%s",
		id, entry.Action, entry.CustomerID, delivery.CorrelationId)
	return nil
}
