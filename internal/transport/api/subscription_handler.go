package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	ledger LedgerServicer
	now    func() time.Time
}

func NewSubscriptionHandler(ledger LedgerServicer) *SubscriptionHandler {
	return &SubscriptionHandler{
		ledger: ledger,
		now:    time.Now,
	}
}

type subscriptionView struct {
	Plan          string    `json:"plan"`
	FrontendPlan  string    `json:"frontendPlan"`
	Books         []string  `json:"books"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DaysRemaining int       `json:"daysRemaining"`
}

// Index активные подписки текущего пользователя.
func (h *SubscriptionHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	payments, err := h.ledger.ActiveSubscriptions(ctx, middlewares.CurrentUserEmail(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	now := h.now()
	views := make([]subscriptionView, 0, len(payments))
	for _, p := range payments {
		views = append(views, subscriptionView{
			Plan:          p.Plan,
			FrontendPlan:  p.FrontendPlan,
			Books:         p.Books,
			ExpiresAt:     p.ExpirationDate,
			DaysRemaining: int(math.Ceil(p.ExpirationDate.Sub(now).Hours() / 24)), //nolint:mnd
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"isActive":      len(views) > 0,
		"subscriptions": views,
	})
}

type LockBookParams struct {
	Book string `binding:"required,max_bytes=256" json:"book"`
}

func (h *SubscriptionHandler) LockBook(c *gin.Context) {
	var params LockBookParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, http.StatusBadRequest, err, gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	payment, err := h.ledger.LockBook(ctx, middlewares.CurrentUserEmail(c), params.Book)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Book %q locked to your subscription until %s.",
			params.Book, payment.ExpirationDate.Format("2006-01-02")),
	})
}
