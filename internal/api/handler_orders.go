package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// OrderFetcher resolves a customer's orders through the orders service.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, customerID, correlationID string) ([]json.RawMessage, error)
}

// GetCustomerOrders godoc
// @Summary      Get the orders of a customer
// @Description  Asks the orders service over pub/sub and waits for its reply
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {array}   object
// @Failure      400  {string}  string  "Unknown customer"
// @Failure      500  {string}  string
// @Failure      504  {string}  string  "Orders service did not respond"
// @Router       /customers/{id}/orders [get]
func (h *CustomerHandler) GetCustomerOrders(c *gin.Context) {
	orders, err := h.Orders.FetchOrders(c.Request.Context(), c.Param("id"), middleware.GetCorrelationID(c))
	if errors.Is(err, apperr.ErrNotFound) {
		// The id in the path is an argument of the query, not the resource itself.
		c.String(http.StatusBadRequest, apperr.Message(err))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}
