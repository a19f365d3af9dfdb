package store

import (
	"context"
	"errors"
	"testing"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

var customerCols = []string{"id", "name", "address", "city", "postal_code", "country", "email"}

func newMockStore(t *testing.T) (*CustomerStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCustomerStore(db), mock
}

func TestGet_Success(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, address, city, postal_code, country, email FROM customers WHERE id = \\$1").
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow("cust-1", nil, nil, "Lyon", nil, nil, "a@example.com"))

	c, err := s.Get(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.ID != "cust-1" || c.Email != "a@example.com" || c.City != "Lyon" {
		t.Errorf("unexpected customer: %+v", c)
	}
	if c.Name != "" {
		t.Errorf("expected NULL name to map to empty, got %q", c.Name)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM customers WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(customerCols))

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGet_StorageError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM customers WHERE id = \\$1").
		WithArgs("cust-1").
		WillReturnError(errors.New("connection refused"))

	_, err := s.Get(context.Background(), "cust-1")
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if got := apperr.Message(err); got != "Error while fetching customer by ID: connection refused" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestList_Empty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM customers ORDER BY created_at").
		WillReturnRows(sqlmock.NewRows(customerCols))

	customers, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if customers == nil || len(customers) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", customers)
	}
}

func TestCreate_AssignsID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO customers").
		WithArgs(sqlmock.AnyArg(), "Jane", nil, nil, nil, nil, "a@example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := s.Create(context.Background(), models.Fields{"name": "Jane", "email": "a@example.com"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id == "" {
		t.Error("expected an id to be assigned")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestCreate_UniqueViolationIsValidationError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO customers").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := s.Create(context.Background(), models.Fields{"email": "a@example.com"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := apperr.Message(err); got != MsgDuplicateEmail {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestMerge_OnlySuppliedColumns(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE customers SET city = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2").
		WithArgs("Lyon", "cust-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Merge(context.Background(), "cust-1", models.Fields{"city": "Lyon"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestMerge_ColumnOrderIsDeterministic(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE customers SET name = \\$1, city = \\$2, email = \\$3, updated_at = NOW\\(\\) WHERE id = \\$4").
		WithArgs("Jane", "Lyon", "j@example.com", "cust-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	fields := models.Fields{"email": "j@example.com", "city": "Lyon", "name": "Jane"}
	if err := s.Merge(context.Background(), "cust-1", fields); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestMerge_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE customers").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Merge(context.Background(), "missing", models.Fields{"city": "Lyon"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete_NotFoundIsNotStorageError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM customers WHERE id = \\$1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Delete(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if errors.Is(err, apperr.ErrStorage) {
		t.Error("did not expect a storage error")
	}
}

func TestDelete_StorageError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM customers").
		WillReturnError(errors.New("connection reset"))

	err := s.Delete(context.Background(), "cust-1")
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestEmailExists(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("a@example.com", "cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.EmailExists(context.Background(), "a@example.com", "cust-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !exists {
		t.Error("expected email to exist")
	}
}
