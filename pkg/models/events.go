package models

import (
	"encoding/json"
	"errors"
	"time"
)

// LifecycleAction is the action carried by a customer lifecycle event.
type LifecycleAction string

const (
	ActionCreate LifecycleAction = "create"
	ActionUpdate LifecycleAction = "update"
	ActionDelete LifecycleAction = "delete"
)

// CustomerEvent announces a change to a customer record on the lifecycle topic.
type CustomerEvent struct {
	EventID       string          `json:"event_id"`
	CorrelationID string          `json:"correlation_id"`
	Action        LifecycleAction `json:"action"`
	ID            string          `json:"id"`
	Data          *Customer       `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ClientAction is the action of a message exchanged with the orders service.
type ClientAction string

const (
	ActionGetOrdersByClient ClientAction = "GET_ORDERS_BY_CLIENT"
	ActionOrdersByClient    ClientAction = "ORDERS_BY_CLIENT"
	ActionDeleteClient      ClientAction = "DELETE_CLIENT"
	ActionClientExists      ClientAction = "CLIENT_EXISTS"
	ActionVerifyClient      ClientAction = "VERIF_CLIENT"
)

// ClientMessage is the payload exchanged with the orders service, in both
// directions.
type ClientMessage struct {
	Action   ClientAction      `json:"action"`
	ClientID string            `json:"clientId"`
	Message  string            `json:"message,omitempty"`
	Orders   []json.RawMessage `json:"orders,omitempty"`
}

// PushEnvelope is the body of a push subscription delivery.
type PushEnvelope struct {
	Message *PushMessage `json:"message"`
}

// PushMessage carries the base64 encoded payload of a push delivery.
type PushMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// LifecycleEntry is the common view of anything published on the lifecycle
// topic: a CustomerEvent or a DELETE_CLIENT announcement.
type LifecycleEntry struct {
	EventID    string
	Action     string
	CustomerID string
	Email      string
	Timestamp  time.Time
}

// ParseLifecycleEntry decodes a lifecycle topic message of either shape.
func ParseLifecycleEntry(body []byte) (LifecycleEntry, error) {
	var raw struct {
		EventID   string    `json:"event_id"`
		Action    string    `json:"action"`
		ID        string    `json:"id"`
		ClientID  string    `json:"clientId"`
		Data      *Customer `json:"data"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return LifecycleEntry{}, err
	}
	if raw.Action == "" {
		return LifecycleEntry{}, errors.New("lifecycle message has no action")
	}

	entry := LifecycleEntry{
		EventID:    raw.EventID,
		Action:     raw.Action,
		CustomerID: raw.ID,
		Timestamp:  raw.Timestamp,
	}
	if entry.CustomerID == "" {
		entry.CustomerID = raw.ClientID
	}
	if entry.CustomerID == "" {
		return LifecycleEntry{}, errors.New("lifecycle message has no customer id")
	}
	if raw.Data != nil {
		entry.Email = raw.Data.Email
	}
	return entry, nil
}
