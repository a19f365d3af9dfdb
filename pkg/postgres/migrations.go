package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// idempotencyKeys is shared by every consumer on a database; each consumer
// claims a message id under its own name.
const idempotencyKeys = `CREATE TABLE IF NOT EXISTS idempotency_keys (
	consumer VARCHAR(64) NOT NULL,
	message_id VARCHAR(64) NOT NULL,
	processed_at TIMESTAMP NOT NULL DEFAULT NOW(),
	PRIMARY KEY (consumer, message_id)
)`

// RunMigrations creates the tables the given service needs.
func RunMigrations(ctx context.Context, db *sql.DB, service string) error {
	for i, m := range getServiceMigrations(service) {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d for %s: %w", i+1, service, err)
		}
	}
	log.Printf("[Postgres] Migrations completed for service: %s", service)
	return nil
}

func getServiceMigrations(service string) []string {
	customers := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255),
			address VARCHAR(255),
			city VARCHAR(255),
			postal_code VARCHAR(10),
			country VARCHAR(255),
			email VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS customers_email_key ON customers (email)`,
	}

	switch service {
	case "api":
		return customers
	case "audit":
		return []string{
			idempotencyKeys,
			`CREATE TABLE IF NOT EXISTS customer_event_log (
				id SERIAL PRIMARY KEY,
				message_id VARCHAR(64) NOT NULL,
				correlation_id VARCHAR(64),
				topic VARCHAR(255) NOT NULL,
				action VARCHAR(50) NOT NULL,
				customer_id VARCHAR(255) NOT NULL,
				customer_email VARCHAR(255),
				received_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		}
	case "analytics":
		return []string{
			idempotencyKeys,
			`CREATE TABLE IF NOT EXISTS lifecycle_metrics (
				id SERIAL PRIMARY KEY,
				metric_date DATE NOT NULL,
				action VARCHAR(50) NOT NULL,
				count INTEGER NOT NULL DEFAULT 0,
				UNIQUE(metric_date, action)
			)`,
		}
	default:
		return customers
	}
}
