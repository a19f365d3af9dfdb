// Package store is the record store gateway for customer records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	MsgCustomerNotFound = "Customer not found"
	MsgDuplicateEmail   = "A customer with this email already exists."

	uniqueViolation = pq.ErrorCode("23505")

	selectCustomer = "SELECT id, name, address, city, postal_code, country, email FROM customers"
)

// CustomerStore provides typed CRUD access to the customers table.
type CustomerStore struct {
	DB *sql.DB
}

// NewCustomerStore creates a new CustomerStore.
func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{DB: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (models.Customer, error) {
	var (
		c    models.Customer
		cols [6]sql.NullString
	)
	if err := row.Scan(&c.ID, &cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5]); err != nil {
		return c, err
	}
	c.Name = cols[0].String
	c.Address = cols[1].String
	c.City = cols[2].String
	c.PostalCode = cols[3].String
	c.Country = cols[4].String
	c.Email = cols[5].String
	return c, nil
}

// Get returns the customer with the given id.
func (s *CustomerStore) Get(ctx context.Context, id string) (models.Customer, error) {
	row := s.DB.QueryRowContext(ctx, selectCustomer+" WHERE id = $1", id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Customer{}, apperr.NotFound(MsgCustomerNotFound)
	}
	if err != nil {
		return models.Customer{}, apperr.Storage("fetching customer by ID", err)
	}
	return c, nil
}

// List returns every customer, oldest first.
func (s *CustomerStore) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.DB.QueryContext(ctx, selectCustomer+" ORDER BY created_at")
	if err != nil {
		return nil, apperr.Storage("fetching customers", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, apperr.Storage("fetching customers", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("fetching customers", err)
	}
	return customers, nil
}

// Create inserts a new customer and returns the id assigned to it.
func (s *CustomerStore) Create(ctx context.Context, fields models.Fields) (string, error) {
	id := uuid.New().String()
	args := []any{id}
	for _, name := range models.AllowedFields {
		args = append(args, nullable(fields, name))
	}

	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO customers (id, name, address, city, postal_code, country, email) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		args...,
	)
	if isUniqueViolation(err) {
		return "", apperr.Validation(MsgDuplicateEmail)
	}
	if err != nil {
		return "", apperr.Storage("creating customer", err)
	}
	return id, nil
}

// Merge applies a partial update. Only the supplied fields change.
func (s *CustomerStore) Merge(ctx context.Context, id string, fields models.Fields) error {
	var (
		sets []string
		args []any
	)
	for _, name := range models.AllowedFields {
		value, ok := fields[name]
		if !ok {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE customers SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return apperr.Validation(MsgDuplicateEmail)
	}
	if err != nil {
		return apperr.Storage("updating customer", err)
	}
	return requireRow(res, "updating customer")
}

// Delete removes the customer with the given id.
func (s *CustomerStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM customers WHERE id = $1", id)
	if err != nil {
		return apperr.Storage("deleting customer", err)
	}
	return requireRow(res, "deleting customer")
}

// EmailExists reports whether another customer already uses email. excludeID
// may be empty.
func (s *CustomerStore) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1 AND id <> $2)", email, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("checking email uniqueness", err)
	}
	return exists, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(op, err)
	}
	if n == 0 {
		return apperr.NotFound(MsgCustomerNotFound)
	}
	return nil
}

func nullable(fields models.Fields, name string) sql.NullString {
	v, ok := fields[name]
	return sql.NullString{String: v, Valid: ok}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
