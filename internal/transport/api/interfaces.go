package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"io"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/service"
)

type OrderServicer interface {
	CreateOrder(ctx context.Context, args service.CreateOrderArgs) (*domain.Order, error)
	SubmitOrder(ctx context.Context, args service.SubmitOrderArgs) (*domain.Order, error)
	ReviewOrder(ctx context.Context, args service.ReviewOrderArgs) (*service.ReviewResult, error)
	GetOrder(ctx context.Context, orderID, caller string) (*domain.Order, error)
	PendingOrders(ctx context.Context, caller string) ([]domain.Order, error)
}

type LedgerServicer interface {
	PaymentStatus(ctx context.Context, transactionID string) (*service.PaymentStatus, error)
	ActiveSubscriptions(ctx context.Context, email string) ([]domain.Payment, error)
	LockBook(ctx context.Context, email, book string) (*domain.Payment, error)
}

type ReferralServicer interface {
	GetStatus(ctx context.Context, email string) (*service.ReferralStatus, error)
	ApplyReferralCode(ctx context.Context, email, code string) (string, error)
	UseFreePaper(ctx context.Context, email string) (int, error)
}

type GatewayServicer interface {
	CreateCheckout(ctx context.Context, args service.CreateCheckoutArgs) (*domain.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

// ScreenshotStore сохраняет файл скриншота и возвращает ссылку на него. Delete убирает файл отклоненной отправки.
type ScreenshotStore interface {
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}
