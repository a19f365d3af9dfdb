package api

import (
	"context"
	"log"
	"net/http"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/validation"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/middleware"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidJSON     = "The request body must be a JSON object."
	msgDuplicateEmail  = "A customer with this email already exists."
	msgCustomerCreated = "Customer created with ID: "
	msgCustomerUpdated = "Customer updated"
	msgCustomerDeleted = "Customer deleted"
)

// CustomerStore is the record store gateway used by the handlers.
type CustomerStore interface {
	Get(ctx context.Context, id string) (models.Customer, error)
	List(ctx context.Context) ([]models.Customer, error)
	Create(ctx context.Context, fields models.Fields) (string, error)
	Merge(ctx context.Context, id string, fields models.Fields) error
	Delete(ctx context.Context, id string) error
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
}

// LifecycleEmitter announces customer changes. Announcements are best-effort.
type LifecycleEmitter interface {
	CustomerChanged(ctx context.Context, action models.LifecycleAction, id string, data *models.Customer, correlationID string)
}

// CustomerHandler handles customer-related HTTP requests.
type CustomerHandler struct {
	Store    CustomerStore
	Events   LifecycleEmitter
	Orders   OrderFetcher
	Verifier Verifier
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore, events LifecycleEmitter, orders OrderFetcher, verifier Verifier) *CustomerHandler {
	return &CustomerHandler{Store: store, Events: events, Orders: orders, Verifier: verifier}
}

// respondError writes err as a text response with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v kind=%s correlation_id=%s",
			c.Request.Method, c.FullPath(), err, apperr.Kind(err), middleware.GetCorrelationID(c))
	}
	c.String(status, apperr.Message(err))
}

// ListCustomers godoc
// @Summary      List all customers
// @Description  Returns every customer. Requires the X-API-Key header.
// @Tags         customers
// @Produce      json
// @Param        X-API-Key  header    string  true  "API key"
// @Success      200        {array}   models.Customer
// @Failure      403        {object}  map[string]string
// @Failure      500        {string}  string
// @Router       /customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	customers, err := h.Store.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GetCustomer godoc
// @Summary      Get a customer by ID
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  models.Customer
// @Failure      404  {string}  string
// @Failure      500  {string}  string
// @Router       /customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// CreateCustomer godoc
// @Summary      Create a new customer
// @Description  Creates a customer and publishes a create event on the lifecycle topic
// @Tags         customers
// @Accept       json
// @Produce      plain
// @Param        request  body      models.Customer  true  "Customer fields (id is ignored)"
// @Success      201      {string}  string
// @Failure      400      {string}  string
// @Failure      500      {string}  string
// @Router       /customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	correlationID := middleware.GetCorrelationID(c)

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.String(http.StatusBadRequest, msgInvalidJSON)
		return
	}

	fields, err := validation.ValidateForCreate(payload)
	if err != nil {
		respondError(c, err)
		return
	}

	// Racy against a concurrent create; the unique index catches what this misses.
	exists, err := h.Store.EmailExists(ctx, fields[models.FieldEmail], "")
	if err != nil {
		respondError(c, err)
		return
	}
	if exists {
		c.String(http.StatusBadRequest, msgDuplicateEmail)
		return
	}

	id, err := h.Store.Create(ctx, fields)
	if err != nil {
		respondError(c, err)
		return
	}

	customer := models.Customer{ID: id}
	fields.Apply(&customer)
	h.Events.CustomerChanged(ctx, models.ActionCreate, id, &customer, correlationID)

	log.Printf("[API] Customer created: id=%s correlation_id=%s", id, correlationID)
	c.String(http.StatusCreated, msgCustomerCreated+id)
}

// UpdateCustomer godoc
// @Summary      Update a customer
// @Description  Partially updates a customer; only supplied fields change
// @Tags         customers
// @Accept       json
// @Produce      plain
// @Param        id       path      string           true  "Customer ID"
// @Param        request  body      models.Customer  true  "Fields to change"
// @Success      200      {string}  string
// @Failure      400      {string}  string
// @Failure      404      {string}  string
// @Failure      500      {string}  string
// @Router       /customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	correlationID := middleware.GetCorrelationID(c)
	id := c.Param("id")

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.String(http.StatusBadRequest, msgInvalidJSON)
		return
	}

	fields, err := validation.ValidateForUpdate(payload)
	if err != nil {
		respondError(c, err)
		return
	}

	customer, err := h.Store.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if email, ok := fields[models.FieldEmail]; ok {
		exists, err := h.Store.EmailExists(ctx, email, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if exists {
			c.String(http.StatusBadRequest, msgDuplicateEmail)
			return
		}
	}

	if err := h.Store.Merge(ctx, id, fields); err != nil {
		respondError(c, err)
		return
	}

	fields.Apply(&customer)
	h.Events.CustomerChanged(ctx, models.ActionUpdate, id, &customer, correlationID)

	log.Printf("[API] Customer updated: id=%s correlation_id=%s", id, correlationID)
	c.String(http.StatusOK, msgCustomerUpdated)
}

// DeleteCustomer godoc
// @Summary      Delete a customer
// @Description  Deletes a customer and publishes a delete event on the lifecycle topic
// @Tags         customers
// @Produce      plain
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {string}  string
// @Failure      404  {string}  string
// @Failure      500  {string}  string
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	correlationID := middleware.GetCorrelationID(c)
	id := c.Param("id")

	if err := h.Store.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	h.Events.CustomerChanged(ctx, models.ActionDelete, id, nil, correlationID)

	log.Printf("[API] Customer deleted: id=%s correlation_id=%s", id, correlationID)
	c.String(http.StatusOK, msgCustomerDeleted)
}
