package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/fsdevblog/paperify-pay/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	RejectedOrderMessage = "Order rejected."
	approvedOrderFormat  = "Order approved. Access active until %s."
)

type AdminHandler struct {
	orders OrderServicer
}

func NewAdminHandler(orders OrderServicer) *AdminHandler {
	return &AdminHandler{orders: orders}
}

type ReviewParams struct {
	OrderID string `binding:"required,max_bytes=64"  json:"orderId"`
	Action  string `binding:"required,review_action" json:"action"`
	Note    string `binding:"max_bytes=1000"          json:"note"`
}

func (h *AdminHandler) Review(c *gin.Context) {
	var params ReviewParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, http.StatusBadRequest, err, gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	res, err := h.orders.ReviewOrder(ctx, service.ReviewOrderArgs{
		OrderID:  params.OrderID,
		Action:   domain.ReviewActionType(params.Action),
		Note:     params.Note,
		Reviewer: middlewares.CurrentUserEmail(c),
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	msg := RejectedOrderMessage
	if res.Payment != nil {
		msg = fmt.Sprintf(approvedOrderFormat, res.Payment.ExpirationDate.Format("2006-01-02"))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msg,
		"order":   res.Order,
	})
}

func (h *AdminHandler) Pending(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	orders, err := h.orders.PendingOrders(ctx, middlewares.CurrentUserEmail(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pending": orders})
}
