package api

import (
	"net/http"
	"strings"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const welcomeMessage = "Welcome to the Customers API"

// NewRouter creates and configures the Gin router. apiKey guards the customer
// listing.
func NewRouter(h *CustomerHandler, apiKey string) *gin.Engine {
	r := gin.Default()

	// Middleware
	r.Use(middleware.CorrelationID())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, welcomeMessage)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Customer routes
	customers := r.Group("/customers")
	customers.GET("", middleware.APIKey(apiKey), h.ListCustomers)
	customers.POST("", h.CreateCustomer)
	customers.POST("/pubsub", h.HandlePubSub)
	customers.GET("/:id", h.GetCustomer)
	customers.PUT("/:id", h.UpdateCustomer)
	customers.DELETE("/:id", h.DeleteCustomer)
	customers.GET("/:id/orders", h.GetCustomerOrders)

	return r
}

// NewHandler wraps the router with CORS so browser clients on allowedOrigins can
// call the API, including preflight for the custom headers.
func NewHandler(h *CustomerHandler, apiKey string, allowedOrigins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.APIKeyHeader, middleware.CorrelationIDHeader},
		ExposedHeaders:   []string{middleware.CorrelationIDHeader},
		AllowCredentials: !allowsAny(allowedOrigins),
		MaxAge:           300,
	})(NewRouter(h, apiKey))
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
