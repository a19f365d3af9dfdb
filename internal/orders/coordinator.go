// Package orders fetches a customer's orders from the orders service over
// publish/subscribe.
//
// A lookup publishes GET_ORDERS_BY_CLIENT and parks the caller until an
// ORDERS_BY_CLIENT reply carrying the same clientId arrives on the shared reply
// subscription, or until the wait bound expires. The customer id is the
// correlation key.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/events"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultTimeout = 10 * time.Second

	MsgUpstreamTimeout = "The orders service did not respond in time"
)

// CustomerGetter is the part of the record store the coordinator needs.
type CustomerGetter interface {
	Get(ctx context.Context, id string) (models.Customer, error)
}

// waiter is one pending lookup. result has capacity 1 and receives exactly one
// value, sent by whoever removed the waiter from the table on a reply.
type waiter struct {
	createdAt time.Time
	result    chan []json.RawMessage
}

// Coordinator correlates order requests with their replies.
type Coordinator struct {
	store   CustomerGetter
	pub     events.Publisher
	topic   string
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]map[*waiter]struct{}
}

// NewCoordinator creates a Coordinator publishing requests on requestTopic.
// A non-positive timeout falls back to DefaultTimeout.
func NewCoordinator(store CustomerGetter, pub events.Publisher, requestTopic string, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		store:   store,
		pub:     pub,
		topic:   requestTopic,
		timeout: timeout,
		pending: make(map[string]map[*waiter]struct{}),
	}
}

// FetchOrders asks the orders service for the orders of customerID and waits
// for the reply. It fails with a not-found error, without publishing, when the
// customer does not exist, and with an upstream-timeout error when no reply
// arrives within the wait bound.
func (c *Coordinator) FetchOrders(ctx context.Context, customerID, correlationID string) ([]json.RawMessage, error) {
	if _, err := c.store.Get(ctx, customerID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Register before publishing so a fast reply cannot be missed.
	w := c.register(customerID)

	request := models.ClientMessage{
		Action:   models.ActionGetOrdersByClient,
		ClientID: customerID,
		Message:  "Request for the orders of customer " + customerID,
	}
	if err := events.PublishJSON(ctx, c.pub, c.topic, request, correlationID); err != nil {
		c.remove(customerID, w)
		return nil, apperr.Transport("requesting customer orders", err)
	}
	log.Printf("[Orders] Waiting for orders client_id=%s correlation_id=%s", customerID, correlationID)

	select {
	case orders := <-w.result:
		return orders, nil
	case <-ctx.Done():
		if !c.remove(customerID, w) {
			// A reply claimed the waiter first; its value is already on the way.
			return <-w.result, nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("[Orders] Timed out after %s client_id=%s correlation_id=%s", c.timeout, customerID, correlationID)
			return nil, apperr.UpstreamTimeout(MsgUpstreamTimeout)
		}
		log.Printf("[Orders] Lookup abandoned: %v client_id=%s correlation_id=%s", ctx.Err(), customerID, correlationID)
		return nil, ctx.Err()
	}
}

// HandleReply processes one message from the shared reply subscription. It
// always returns nil: messages that are malformed, carry another action or
// match no pending lookup are dropped, since the subscription is shared.
func (c *Coordinator) HandleReply(body []byte) error {
	var msg models.ClientMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Printf("[Orders] Ignoring undecodable reply: %v", err)
		return nil
	}
	if msg.Action != models.ActionOrdersByClient {
		log.Printf("[Orders] Ignoring message action=%s client_id=%s", msg.Action, msg.ClientID)
		return nil
	}

	orders := msg.Orders
	if orders == nil {
		orders = []json.RawMessage{}
	}
	if n := c.resolve(msg.ClientID, orders); n == 0 {
		log.Printf("[Orders] Dropping reply with no pending lookup client_id=%s", msg.ClientID)
	}
	return nil
}

// HandleDelivery adapts HandleReply to the broker consumer.
func (c *Coordinator) HandleDelivery(delivery amqp.Delivery) error {
	return c.HandleReply(delivery.Body)
}

// Pending returns the number of lookups currently waiting for a reply.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, set := range c.pending {
		n += len(set)
	}
	return n
}

func (c *Coordinator) register(key string) *waiter {
	w := &waiter{createdAt: time.Now(), result: make(chan []json.RawMessage, 1)}

	c.mu.Lock()
	set, ok := c.pending[key]
	if !ok {
		set = make(map[*waiter]struct{})
		c.pending[key] = set
	}
	set[w] = struct{}{}
	c.mu.Unlock()

	return w
}

// remove unregisters w and reports whether it was still registered.
func (c *Coordinator) remove(key string, w *waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.pending[key]
	if !ok {
		return false
	}
	if _, ok := set[w]; !ok {
		return false
	}
	delete(set, w)
	if len(set) == 0 {
		delete(c.pending, key)
	}
	return true
}

// resolve hands orders to every lookup waiting on key and returns how many
// there were. Lookups for the same customer asked the same question, so one
// reply answers all of them.
func (c *Coordinator) resolve(key string, orders []json.RawMessage) int {
	c.mu.Lock()
	set := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()

	for w := range set {
		w.result <- orders
		log.Printf("[Orders] Resolved lookup client_id=%s waited=%s", key, time.Since(w.createdAt).Round(time.Millisecond))
	}
	return len(set)
}
