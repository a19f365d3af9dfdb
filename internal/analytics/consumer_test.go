package analytics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	amqp "github.com/rabbitmq/amqp091-go"
)

func makeDelivery(t *testing.T, messageID string, v any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return amqp.Delivery{
		Body:          body,
		MessageId:     messageID,
		CorrelationId: "corr-a001",
		RoutingKey:    "client-actions",
	}
}

func TestHandleMessage_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db)

	ts := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	event := models.CustomerEvent{
		EventID:   "evt-a001",
		Action:    models.ActionCreate,
		ID:        "cust-a001",
		Timestamp: ts,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(Name, "msg-a001").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lifecycle_metrics").
		WithArgs("2024-03-14", "create").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := consumer.HandleMessage(makeDelivery(t, "msg-a001", event)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestHandleMessage_DeletionAnnouncementUsesArrivalDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db)
	consumer.Now = func() time.Time { return time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC) }

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(Name, "msg-a002").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lifecycle_metrics").
		WithArgs("2024-05-01", "DELETE_CLIENT").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	msg := models.ClientMessage{Action: models.ActionDeleteClient, ClientID: "ghost"}
	if err := consumer.HandleMessage(makeDelivery(t, "msg-a002", msg)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestHandleMessage_DuplicateEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(Name, "msg-a003").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	event := models.CustomerEvent{EventID: "evt-a003", Action: models.ActionUpdate, ID: "cust-a003", Timestamp: time.Now()}
	if err := consumer.HandleMessage(makeDelivery(t, "msg-a003", event)); err != nil {
		t.Fatalf("expected no error for duplicate, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestHandleMessage_UpsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lifecycle_metrics").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	event := models.CustomerEvent{EventID: "evt-a004", Action: models.ActionDelete, ID: "cust-a004", Timestamp: time.Now()}
	if err := consumer.HandleMessage(makeDelivery(t, "msg-a004", event)); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db)

	delivery := amqp.Delivery{
		Body:          []byte("not json"),
		MessageId:     "msg-bad",
		CorrelationId: "corr-bad",
	}

	if err := consumer.HandleMessage(delivery); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
