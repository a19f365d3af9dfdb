package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/apperr"

	"github.com/gin-gonic/gin"
)

const (
	APIKeyHeader     = "X-API-Key"
	MsgInvalidAPIKey = "Forbidden: Invalid API Key"
)

// APIKey rejects requests whose X-API-Key header does not match key. An empty
// key rejects everything.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(APIKeyHeader)
		if key == "" || given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			err := apperr.Forbidden(MsgInvalidAPIKey)
			log.Printf("[API] Rejected request: kind=%s path=%s correlation_id=%s",
				apperr.Kind(err), c.Request.URL.Path, GetCorrelationID(c))
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"message": apperr.Message(err)})
			return
		}
		c.Next()
	}
}
