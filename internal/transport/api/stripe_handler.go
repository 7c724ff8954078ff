package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/fsdevblog/paperify-pay/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

const StripeSignatureHeader = "Stripe-Signature"

type StripeHandler struct {
	gateway        GatewayServicer
	publishableKey string
}

func NewStripeHandler(gateway GatewayServicer, publishableKey string) *StripeHandler {
	return &StripeHandler{
		gateway:        gateway,
		publishableKey: publishableKey,
	}
}

type CheckoutParams struct {
	Plan      string          `binding:"max_bytes=64"                  json:"plan"`
	UserEmail string          `binding:"omitempty,email,max_bytes=320" json:"userEmail"`
	Books     json.RawMessage `json:"books"`
}

func (h *StripeHandler) CreateCheckoutSession(c *gin.Context) {
	var params CheckoutParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, http.StatusBadRequest, err, gin.ErrorTypeBind)
		return
	}

	email := middlewares.CurrentUserEmail(c)
	if email == "" {
		email = params.UserEmail
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	session, err := h.gateway.CreateCheckout(ctx, service.CreateCheckoutArgs{
		UserEmail: email,
		PlanKey:   params.Plan,
		Books:     parseBooks(params.Books),
		BaseURL:   requestBaseURL(c),
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	var publishableKey *string
	if h.publishableKey != "" {
		publishableKey = &h.publishableKey
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"checkoutUrl":    session.CheckoutURL,
		"sessionId":      session.SessionID,
		"publishableKey": publishableKey,
	})
}

// Webhook принимает событие шлюза. Подпись проверяется по сырому телу запроса, поэтому тело
// не биндится.
func (h *StripeHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("reading webhook body: %w", err), gin.ErrorTypePrivate)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	if _, err = h.gateway.HandleWebhook(ctx, payload, c.GetHeader(StripeSignatureHeader)); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
