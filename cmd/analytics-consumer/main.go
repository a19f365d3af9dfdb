package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/analytics"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/config"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/postgres"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/rabbitmq"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[Analytics] Starting analytics-consumer...")

	cfg := config.LoadForService("analytics")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Analytics] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := postgres.RunMigrations(ctx, db, "analytics"); err != nil {
		log.Fatalf("[Analytics] Failed to run migrations: %v", err)
	}

	// Connect to RabbitMQ
	rmqConn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ExchangeName)
	if err != nil {
		log.Fatalf("[Analytics] Failed to connect to RabbitMQ: %v", err)
	}
	defer rmqConn.Close()

	// Create consumer
	consumer := analytics.NewConsumer(db)

	consumerCfg := rabbitmq.ConsumerConfig{
		QueueName:    "analytics.customer.events",
		DLQName:      "dlq.analytics.customer.events",
		RoutingKeys:  []string{cfg.LifecycleTopic},
		ConsumerName: "analytics-consumer",
	}

	if err := rabbitmq.SetupConsumer(ctx, rmqConn, consumerCfg, consumer.HandleMessage); err != nil {
		log.Fatalf("[Analytics] Failed to setup consumer: %v", err)
	}

	log.Println("[Analytics] Consumer is running. Waiting for messages...")

	<-ctx.Done()
	log.Println("[Analytics] Shutting down...")
}
