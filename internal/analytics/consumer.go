// Package analytics aggregates daily counts of customer lifecycle actions.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Name scopes the idempotency keys this consumer claims.
const Name = "analytics"

// Consumer handles lifecycle messages for analytics.
type Consumer struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewConsumer creates a new analytics consumer.
func NewConsumer(db *sql.DB) *Consumer {
	return &Consumer{DB: db, Now: time.Now}
}

// metricDate buckets an entry by its own timestamp, or by arrival time when
// the message carries none (deletion announcements).
func (c *Consumer) metricDate(entry models.LifecycleEntry) string {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = c.Now()
	}
	return ts.UTC().Format("2006-01-02")
}

// HandleMessage counts one lifecycle message.
func (c *Consumer) HandleMessage(delivery amqp.Delivery) error {
	ctx := context.Background()

	entry, err := models.ParseLifecycleEntry(delivery.Body)
	if err != nil {
		log.Printf("[Analytics] Failed to parse message: %v correlation_id=%s", err, delivery.CorrelationId)
		return err
	}
	id := delivery.MessageId
	if id == "" {
		id = entry.EventID
	}
	if id == "" {
		return errors.New("message has no id")
	}

	log.Printf("[Analytics] Processing message: action=%s message_id=%s correlation_id=%s",
		entry.Action, id, delivery.CorrelationId)

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin analytics transaction: %w", err)
	}
	defer tx.Rollback()

	// Claiming the key inside the transaction makes the count exactly-once.
	res, err := tx.ExecContext(ctx, "INSERT INTO idempotency_keys (consumer, message_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", Name, id)
	if err != nil {
		log.Printf("[Analytics] Error claiming idempotency key: %v correlation_id=%s", err, delivery.CorrelationId)
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		log.Printf("[Analytics] Duplicate message ignored: message_id=%s correlation_id=%s", id, delivery.CorrelationId)
		return nil
	}

	// Aggregate metrics, upsert count by date and action
	date := c.metricDate(entry)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO lifecycle_metrics (metric_date, action, count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (metric_date, action)
		 DO UPDATE SET count = lifecycle_metrics.count + 1`,
		date, entry.Action,
	)
	if err != nil {
		log.Printf("[Analytics] Error upserting metrics: %v correlation_id=%s", err, delivery.CorrelationId)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analytics transaction: %w", err)
	}

	log.Printf("[Analytics] Metrics updated: date=%s action=%s correlation_id=%s",
		date, entry.Action, delivery.CorrelationId)
	return nil
}
