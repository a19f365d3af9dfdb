// Package events encodes and publishes the messages this service sends to
// other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	"github.com/google/uuid"
)

// Publisher defines the interface for publishing messages on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte, correlationID string) error
}

// PublishJSON encodes v and publishes it on topic.
func PublishJSON(ctx context.Context, pub Publisher, topic string, v any, correlationID string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", topic, err)
	}
	return pub.Publish(ctx, topic, body, correlationID)
}

// Emitter publishes announcements. Announcements are best-effort: a failed
// publish is logged and never reported to the caller.
type Emitter struct {
	Publisher      Publisher
	LifecycleTopic string
}

// NewEmitter creates an Emitter publishing lifecycle events on lifecycleTopic.
func NewEmitter(pub Publisher, lifecycleTopic string) *Emitter {
	return &Emitter{Publisher: pub, LifecycleTopic: lifecycleTopic}
}

// CustomerChanged announces a create, update or delete on the lifecycle topic.
// data may be nil (deletes).
func (e *Emitter) CustomerChanged(ctx context.Context, action models.LifecycleAction, id string, data *models.Customer, correlationID string) {
	event := models.CustomerEvent{
		EventID:       uuid.New().String(),
		CorrelationID: correlationID,
		Action:        action,
		ID:            id,
		Data:          data,
		Timestamp:     time.Now().UTC(),
	}
	if err := PublishJSON(ctx, e.Publisher, e.LifecycleTopic, event, correlationID); err != nil {
		log.Printf("[Events] Error publishing %s event: %v id=%s correlation_id=%s", action, err, id, correlationID)
	}
}

// Announce publishes msg on topic.
func (e *Emitter) Announce(ctx context.Context, topic string, msg models.ClientMessage, correlationID string) {
	if err := PublishJSON(ctx, e.Publisher, topic, msg, correlationID); err != nil {
		log.Printf("[Events] Error publishing %s: %v client_id=%s topic=%s correlation_id=%s",
			msg.Action, err, msg.ClientID, topic, correlationID)
	}
}
