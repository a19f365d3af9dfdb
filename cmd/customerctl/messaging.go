package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/events"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/rabbitmq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// publish sends one message to topic on the configured exchange.
func publish(cmd *cobra.Command, topic string, msg models.ClientMessage) error {
	cfg := loadConfig()

	conn, err := rabbitmq.Connect(cmd.Context(), cfg.RabbitMQURL, cfg.ExchangeName)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	pub, err := rabbitmq.NewPublisher(conn)
	if err != nil {
		return err
	}
	defer pub.Close()

	correlationID := uuid.New().String()
	if err := events.PublishJSON(cmd.Context(), pub, topic, msg, correlationID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s correlation_id=%s\n", msg.Action, topic, correlationID)
	return nil
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <clientId>",
		Short: "Publish a VERIF_CLIENT request on the verification topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			return publish(cmd, cfg.VerificationTopic, models.ClientMessage{
				Action:   models.ActionVerifyClient,
				ClientID: args[0],
			})
		},
	}
}

func replyOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reply-orders <clientId> [orders.json]",
		Short: "Publish an ORDERS_BY_CLIENT reply on the orders reply topic",
		Long: `Publish an ORDERS_BY_CLIENT reply as the orders service would.
The optional file holds a JSON array of orders; without it the reply is empty.

Examples:
  customerctl reply-orders 5f0c... orders.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var orders []json.RawMessage
			if len(args) == 2 {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				if orders, err = readOrders(f); err != nil {
					return err
				}
			}

			cfg := loadConfig()
			return publish(cmd, cfg.OrdersReplyTopic, models.ClientMessage{
				Action:   models.ActionOrdersByClient,
				ClientID: args[0],
				Orders:   orders,
			})
		},
	}
}

func pushVerifyCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "push-verify <clientId>",
		Short: "Deliver a VERIF_CLIENT request to the push webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := pushEnvelope(models.ClientMessage{
				Action:   models.ActionVerifyClient,
				ClientID: args[0],
			})
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 15 * time.Second}
			resp, err := client.Post(baseURL+"/customers/pubsub", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			reply, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, reply)
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("webhook returned %s", resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8081", "Base URL of the api-service")
	return cmd
}

// readOrders decodes a JSON array of orders.
func readOrders(r io.Reader) ([]json.RawMessage, error) {
	var orders []json.RawMessage
	if err := json.NewDecoder(r).Decode(&orders); err != nil {
		return nil, fmt.Errorf("orders file must hold a JSON array: %w", err)
	}
	return orders, nil
}

// pushEnvelope wraps msg the way a push subscription delivers it.
func pushEnvelope(msg models.ClientMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.PushEnvelope{
		Message: &models.PushMessage{
			Data:        base64.StdEncoding.EncodeToString(data),
			MessageID:   uuid.New().String(),
			PublishTime: time.Now().UTC().Format(time.RFC3339),
		},
	})
}
