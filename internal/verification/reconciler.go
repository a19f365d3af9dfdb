// Package verification reconciles local customer existence with the orders
// service's view. The orders service asks "does this customer exist?" with a
// VERIF_CLIENT message; the answer is either a DELETE_CLIENT announcement on the
// lifecycle topic or a CLIENT_EXISTS confirmation on the order-actions topic.
package verification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	MsgInvalidFormat       = "Invalid message format"
	MsgUndecodableData     = "Message data could not be decoded"
	MsgActionNotRecognized = "Action not recognized"
	MsgClientIDMissing     = "The clientId field is required."
)

// Outcome is the result of a successful reconciliation.
type Outcome string

const (
	OutcomeDeletionAnnounced Outcome = "deletion_announced"
	OutcomeVerified          Outcome = "verified"
)

// Message is the text returned to the webhook caller.
func (o Outcome) Message() string {
	switch o {
	case OutcomeDeletionAnnounced:
		return "Customer deletion announced"
	case OutcomeVerified:
		return "Customer verified"
	default:
		return string(o)
	}
}

// CustomerGetter is the part of the record store the reconciler needs.
type CustomerGetter interface {
	Get(ctx context.Context, id string) (models.Customer, error)
}

// Announcer publishes best-effort announcements.
type Announcer interface {
	Announce(ctx context.Context, topic string, msg models.ClientMessage, correlationID string)
}

// Reconciler handles VERIF_CLIENT messages.
type Reconciler struct {
	Store             CustomerGetter
	Announcer         Announcer
	LifecycleTopic    string
	OrderActionsTopic string
}

// NewReconciler creates a new Reconciler.
func NewReconciler(store CustomerGetter, announcer Announcer, lifecycleTopic, orderActionsTopic string) *Reconciler {
	return &Reconciler{
		Store:             store,
		Announcer:         announcer,
		LifecycleTopic:    lifecycleTopic,
		OrderActionsTopic: orderActionsTopic,
	}
}

// DecodeEnvelope extracts the message carried by a push delivery
// ({"message":{"data":"<base64 JSON>"}}). The envelope shape is checked before
// the payload is decoded.
func DecodeEnvelope(body []byte) (models.ClientMessage, error) {
	var env models.PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Message == nil || env.Message.Data == "" {
		return models.ClientMessage{}, apperr.Protocol(MsgInvalidFormat)
	}

	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return models.ClientMessage{}, apperr.Protocol(MsgUndecodableData)
	}

	var msg models.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.ClientMessage{}, apperr.Protocol(MsgUndecodableData)
	}
	return msg, nil
}

// Handle reconciles one verification request. Exactly one announcement is
// published per successful call. Nothing is written to the store: an absent
// customer is already absent, so only the announcement is new.
func (r *Reconciler) Handle(ctx context.Context, msg models.ClientMessage, correlationID string) (Outcome, error) {
	if msg.Action != models.ActionVerifyClient {
		return "", apperr.Protocol(MsgActionNotRecognized)
	}
	if msg.ClientID == "" {
		return "", apperr.Protocol(MsgClientIDMissing)
	}

	_, err := r.Store.Get(ctx, msg.ClientID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		r.Announcer.Announce(ctx, r.LifecycleTopic, models.ClientMessage{
			Action:   models.ActionDeleteClient,
			ClientID: msg.ClientID,
			Message:  "Customer " + msg.ClientID + " does not exist",
		}, correlationID)
		log.Printf("[Verification] Customer absent, deletion announced client_id=%s correlation_id=%s", msg.ClientID, correlationID)
		return OutcomeDeletionAnnounced, nil

	case err != nil:
		log.Printf("[Verification] Error fetching customer: %v client_id=%s correlation_id=%s", err, msg.ClientID, correlationID)
		return "", err
	}

	r.Announcer.Announce(ctx, r.OrderActionsTopic, models.ClientMessage{
		Action:   models.ActionClientExists,
		ClientID: msg.ClientID,
		Message:  "Customer " + msg.ClientID + " exists",
	}, correlationID)
	log.Printf("[Verification] Customer verified client_id=%s correlation_id=%s", msg.ClientID, correlationID)
	return OutcomeVerified, nil
}

// HandleDelivery consumes a verification request from the pull subscription,
// where the body is the raw JSON message. Protocol and storage failures nack
// the delivery to the dead-letter queue.
func (r *Reconciler) HandleDelivery(delivery amqp.Delivery) error {
	var msg models.ClientMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		log.Printf("[Verification] Failed to unmarshal message: %v correlation_id=%s", err, delivery.CorrelationId)
		return apperr.Protocol(MsgInvalidFormat)
	}

	_, err := r.Handle(context.Background(), msg, delivery.CorrelationId)
	return err
}
