package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/fsdevblog/paperify-pay/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	MaxScreenshotBytes = 5 << 20
	// запас на остальные поля формы и multipart разметку.
	multipartOverheadBytes = 64 << 10
	ScreenshotFormField    = "screenshot"
	SubmittedOrderMessage  = "Payment submitted for verification. Access will activate after approval."
	pendingScreenshotRef   = "pending-upload"
)

var (
	ErrScreenshotTooLarge = errors.New("screenshot must be 5MB or smaller")
	ErrScreenshotNotImage = errors.New("only image files are allowed")
)

type PaymentHandler struct {
	orders      OrderServicer
	ledger      LedgerServicer
	screenshots ScreenshotStore
}

func NewPaymentHandler(orders OrderServicer, ledger LedgerServicer, screenshots ScreenshotStore) *PaymentHandler {
	return &PaymentHandler{
		orders:      orders,
		ledger:      ledger,
		screenshots: screenshots,
	}
}

type CreateOrderParams struct {
	Plan      string          `binding:"max_bytes=64"                  json:"plan"`
	UserEmail string          `binding:"omitempty,email,max_bytes=320" json:"userEmail"`
	Books     json.RawMessage `json:"books"`
}

// orderView представление заказа для покупателя, без полей проверки.
type orderView struct {
	OrderID       string          `json:"orderId"`
	Plan          string          `json:"plan"`
	Amount        decimal.Decimal `json:"amount"`
	Books         []string        `json:"books"`
	PaymentNumber string          `json:"paymentNumber"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var params CreateOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, http.StatusBadRequest, err, gin.ErrorTypeBind)
		return
	}

	// email из сессии важнее email из тела запроса.
	email := middlewares.CurrentUserEmail(c)
	if email == "" {
		email = params.UserEmail
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	order, err := h.orders.CreateOrder(ctx, service.CreateOrderArgs{
		PlanKey:   params.Plan,
		UserEmail: email,
		Books:     parseBooks(params.Books),
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": orderView{
			OrderID:       order.OrderID,
			Plan:          order.FrontendPlan,
			Amount:        order.Amount,
			Books:         order.Books,
			PaymentNumber: order.PaymentNumber,
			ExpiresAt:     order.ExpiresAt,
		},
	})
}

// SubmitOrder принимает multipart форму с номером транзакции, номером отправителя и скриншотом перевода.
// Скриншот сохраняется только после проверки формата полей.
func (h *PaymentHandler) SubmitOrder(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxScreenshotBytes+multipartOverheadBytes)

	file, header, fileErr := c.Request.FormFile(ScreenshotFormField)
	var maxBytesErr *http.MaxBytesError
	if errors.As(fileErr, &maxBytesErr) {
		abortWithError(c, http.StatusRequestEntityTooLarge, ErrScreenshotTooLarge, gin.ErrorTypePublic)
		return
	}
	if file != nil {
		defer file.Close()
	}

	args := service.SubmitOrderArgs{
		OrderID:       strings.TrimSpace(c.PostForm("orderId")),
		TransactionID: strings.TrimSpace(c.PostForm("transactionId")),
		SenderNumber:  strings.TrimSpace(c.PostForm("senderNumber")),
	}
	if header != nil {
		// настоящая ссылка появится после сохранения, имя файла от клиента может быть пустым.
		args.ScreenshotRef = pendingScreenshotRef
	}
	if err := args.Validate(); err != nil {
		abortWithServiceError(c, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		abortWithError(c, http.StatusBadRequest, ErrScreenshotNotImage, gin.ErrorTypePublic)
		return
	}
	if header.Size > MaxScreenshotBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge, ErrScreenshotTooLarge, gin.ErrorTypePublic)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	ref, err := h.screenshots.Save(ctx, header.Filename, contentType, file)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, fmt.Errorf("saving screenshot: %w", err), gin.ErrorTypePrivate)
		return
	}
	args.ScreenshotRef = ref

	order, err := h.orders.SubmitOrder(ctx, args)
	if err != nil {
		abortWithServiceError(c, err)
		h.discardScreenshot(c, err, ref)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     SubmittedOrderMessage,
		"orderStatus": order.Status,
	})
}

// discardScreenshot удаляет скриншот отклоненной отправки. При ошибках 5xx исход записи неизвестен,
// поэтому файл остается.
func (h *PaymentHandler) discardScreenshot(c *gin.Context, submitErr error, ref string) {
	if status, _ := serviceErrorStatus(submitErr); status >= http.StatusInternalServerError {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), DefaultServiceTimeout)
	defer cancel()

	if err := h.screenshots.Delete(ctx, ref); err != nil {
		_ = c.Error(fmt.Errorf("removing rejected screenshot %s: %w", ref, err)).SetType(gin.ErrorTypePrivate)
	}
}

func (h *PaymentHandler) GetOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, c.Param("orderId"), middlewares.CurrentUserEmail(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// PaymentStatus публичная проверка статуса по номеру транзакции. Неизвестная транзакция - не ошибка.
func (h *PaymentHandler) PaymentStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	status, err := h.ledger.PaymentStatus(ctx, c.Param("transactionId"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !status.Found {
		c.JSON(http.StatusOK, gin.H{"status": "not-found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        status.Status,
		"plan":          status.Plan,
		"expiresAt":     status.ExpiresAt,
		"isExpired":     status.IsExpired,
		"daysRemaining": status.DaysRemaining,
	})
}
