package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/audit"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/config"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/postgres"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/rabbitmq"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[Audit] Starting audit-consumer...")

	cfg := config.LoadForService("audit")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Audit] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := postgres.RunMigrations(ctx, db, "audit"); err != nil {
		log.Fatalf("[Audit] Failed to run migrations: %v", err)
	}

	// Connect to RabbitMQ
	rmqConn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ExchangeName)
	if err != nil {
		log.Fatalf("[Audit] Failed to connect to RabbitMQ: %v", err)
	}
	defer rmqConn.Close()

	// Create consumer
	consumer := audit.NewConsumer(db)

	consumerCfg := rabbitmq.ConsumerConfig{
		QueueName:    "audit.customer.events",
		DLQName:      "dlq.audit.customer.events",
		RoutingKeys:  []string{cfg.LifecycleTopic},
		ConsumerName: "audit-consumer",
	}

	if err := rabbitmq.SetupConsumer(ctx, rmqConn, consumerCfg, consumer.HandleMessage); err != nil {
		log.Fatalf("[Audit] Failed to setup consumer: %v", err)
	}

	log.Println("[Audit] Consumer is running. Waiting for messages...")

	<-ctx.Done()
	log.Println("[Audit] Shutting down...")
}
