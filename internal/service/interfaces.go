package service

import (
	"context"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// OrderRepository хранилище заказов ручной оплаты. Методы *ForUpdate блокируют запись до конца транзакции.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	Update(ctx context.Context, order domain.Order) (*domain.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error)
	TransactionIDTaken(ctx context.Context, transactionID, exceptOrderID string) (bool, error)
	GetByStatus(ctx context.Context, args repoargs.OrdersByStatus) ([]domain.Order, error)
}

// PaymentRepository хранилище одобренных платежей. Записи только добавляются.
type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	Update(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)
	ExistsByGatewaySessionID(ctx context.Context, sessionID string) (bool, error)
	HasApprovedForUser(ctx context.Context, email string) (bool, error)
	GetActiveByUserEmail(ctx context.Context, email string, now time.Time) ([]domain.Payment, error)
}

// ReferralRepository хранилище реферальных профилей.
type ReferralRepository interface {
	Create(ctx context.Context, profile domain.ReferralProfile) (*domain.ReferralProfile, error)
	Update(ctx context.Context, profile domain.ReferralProfile) (*domain.ReferralProfile, error)
	FindByEmail(ctx context.Context, email string) (*domain.ReferralProfile, error)
	FindByEmailForUpdate(ctx context.Context, email string) (*domain.ReferralProfile, error)
	FindByCode(ctx context.Context, code string) (*domain.ReferralProfile, error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Locker транзакционная блокировка по произвольному ключу. Снимается вместе с завершением транзакции.
type Locker interface {
	Lock(ctx context.Context, namespace repoargs.LockNamespace, key string) error
}

// Authorizer проверяет привилегии вызывающего.
type Authorizer interface {
	CanReviewPayments(identity string) bool
}

// Metrics счетчики переходов, которые сервисный слой сообщает наружу.
type Metrics interface {
	OrderTransition(status domain.OrderStatusType)
	PaymentApproved(source string)
	ReferralCredited()
	GatewayWebhook(result string)
}

// CheckoutClient создает платежные сессии во внешнем шлюзе.
type CheckoutClient interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
}

// WebhookParser проверяет подпись webhook события и разбирает его. Для событий, которые не означают
// завершенную оплату, возвращает nil без ошибки. Неверная подпись - domain.ErrBadSignature.
type WebhookParser interface {
	ParseCheckoutCompleted(payload []byte, signature string) (*domain.CheckoutCompleted, error)
}
