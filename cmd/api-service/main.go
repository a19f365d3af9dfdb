package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/api"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/events"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/orders"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/store"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/verification"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/config"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/postgres"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/rabbitmq"

	_ "github.com/EPSI-MSPR-6/MSPR-Appli-Client/docs"

	"golang.org/x/sync/errgroup"
)

// @title           Customers API
// @version         1.0
// @description     Customer records API. Lifecycle changes are published to RabbitMQ; orders are fetched from the orders service over request/reply messaging.
// @host            localhost:8081
// @BasePath        /
// @schemes         http
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[API] Starting api-service...")

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := postgres.RunMigrations(ctx, db, "api"); err != nil {
		log.Fatalf("[API] Failed to run migrations: %v", err)
	}

	// Connect to RabbitMQ
	rmqConn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ExchangeName)
	if err != nil {
		log.Fatalf("[API] Failed to connect to RabbitMQ: %v", err)
	}
	defer rmqConn.Close()

	// Create publisher
	publisher, err := rabbitmq.NewPublisher(rmqConn)
	if err != nil {
		log.Fatalf("[API] Failed to create publisher: %v", err)
	}
	defer publisher.Close()

	customerStore := store.NewCustomerStore(db)
	emitter := events.NewEmitter(publisher, cfg.LifecycleTopic)
	coordinator := orders.NewCoordinator(customerStore, publisher, cfg.OrdersRequestTopic, cfg.OrdersTimeout)
	reconciler := verification.NewReconciler(customerStore, emitter, cfg.LifecycleTopic, cfg.OrderActionsTopic)

	// Orders replies resolve waiting lookups; a stray reply is acked and dropped.
	ordersCfg := rabbitmq.ConsumerConfig{
		QueueName:    cfg.OrdersSubscription,
		DLQName:      "dlq." + cfg.OrdersSubscription,
		RoutingKeys:  []string{cfg.OrdersReplyTopic},
		ConsumerName: "orders-replies",
		Prefetch:     16,
	}
	if err := rabbitmq.SetupConsumer(ctx, rmqConn, ordersCfg, coordinator.HandleDelivery); err != nil {
		log.Fatalf("[API] Failed to setup orders consumer: %v", err)
	}

	verificationCfg := rabbitmq.ConsumerConfig{
		QueueName:    cfg.VerificationSubscription,
		DLQName:      "dlq." + cfg.VerificationSubscription,
		RoutingKeys:  []string{cfg.VerificationTopic},
		ConsumerName: "verification",
	}
	if err := rabbitmq.SetupConsumer(ctx, rmqConn, verificationCfg, reconciler.HandleDelivery); err != nil {
		log.Fatalf("[API] Failed to setup verification consumer: %v", err)
	}

	// Setup handlers and router
	handler := api.NewCustomerHandler(customerStore, emitter, coordinator, reconciler)
	router := api.NewHandler(handler, cfg.APIKey, cfg.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[API] Listening on port %s", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[API] Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("[API] Server error: %v", err)
		os.Exit(1)
	}
	log.Println("[API] Server exited gracefully")
}
