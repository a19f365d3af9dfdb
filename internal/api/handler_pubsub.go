package api

import (
	"context"
	"log"
	"net/http"

	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/internal/verification"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/middleware"
	"github.com/EPSI-MSPR-6/MSPR-Appli-Client/pkg/models"

	"github.com/gin-gonic/gin"
)

// Verifier reconciles a verification request.
type Verifier interface {
	Handle(ctx context.Context, msg models.ClientMessage, correlationID string) (verification.Outcome, error)
}

// HandlePubSub godoc
// @Summary      Push endpoint for verification requests
// @Description  Receives {"message":{"data":"<base64 JSON>"}} carrying a VERIF_CLIENT request
// @Tags         pubsub
// @Accept       json
// @Produce      plain
// @Param        request  body      models.PushEnvelope  true  "Push envelope"
// @Success      200      {string}  string
// @Failure      400      {string}  string
// @Failure      500      {string}  string
// @Router       /customers/pubsub [post]
func (h *CustomerHandler) HandlePubSub(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)

	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, verification.MsgInvalidFormat)
		return
	}

	msg, err := verification.DecodeEnvelope(body)
	if err != nil {
		log.Printf("[API] Rejected push delivery: %v correlation_id=%s", err, correlationID)
		respondError(c, err)
		return
	}

	outcome, err := h.Verifier.Handle(c.Request.Context(), msg, correlationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, outcome.Message())
}
