package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// суммы в документах и ответах API - JSON числа, как у фронтенда.
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderStatusType string

const (
	OrderStatusCreated   OrderStatusType = "created"
	OrderStatusSubmitted OrderStatusType = "submitted"
	OrderStatusApproved  OrderStatusType = "approved"
	OrderStatusRejected  OrderStatusType = "rejected"
	OrderStatusExpired   OrderStatusType = "expired"
)

type PaymentStatusType string

const (
	PaymentStatusApproved PaymentStatusType = "approved"
)

type ReviewActionType string

const (
	ReviewActionApprove ReviewActionType = "approve"
	ReviewActionReject  ReviewActionType = "reject"
)

// GatewayPaymentNumber записывается в Payment.PaymentNumber для платежей, пришедших через webhook
// платежного шлюза, вместо номера банковского счета.
const GatewayPaymentNumber = "stripe"

// Order попытка ручной оплаты. Поля с указателями заполняются по мере движения заказа по статусам.
type Order struct {
	OrderID       string          `json:"orderId"`
	UserEmail     string          `json:"userEmail"`
	Plan          string          `json:"plan"`
	FrontendPlan  string          `json:"frontendPlan"`
	Amount        decimal.Decimal `json:"amount"`
	Books         []string        `json:"books"`
	PaymentNumber string          `json:"paymentNumber"`
	Status        OrderStatusType `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	SubmittedAt   *time.Time      `json:"submittedAt"`
	TransactionID *string         `json:"transactionId"`
	SenderNumber  *string         `json:"senderNumber"`
	ScreenshotRef *string         `json:"screenshot"`
	ReviewNote    *string         `json:"reviewNote"`
	ReviewedAt    *time.Time      `json:"reviewedAt"`
	ReviewedBy    *string         `json:"reviewedBy"`
}

// IsExpiredAt сообщает, истек ли срок жизни заказа к моменту now.
func (o *Order) IsExpiredAt(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// TransactionIDValue возвращает номер транзакции или пустую строку.
func (o *Order) TransactionIDValue() string {
	if o.TransactionID == nil {
		return ""
	}
	return *o.TransactionID
}

// Payment одобренное право доступа, независимо от источника (ручной заказ или платежный шлюз).
type Payment struct {
	Plan             string            `json:"plan"`
	FrontendPlan     string            `json:"frontendPlan"`
	Amount           decimal.Decimal   `json:"amount"`
	TransactionID    string            `json:"transactionId"`
	ScreenshotRef    *string           `json:"screenshot"`
	Books            []string          `json:"books"`
	PaymentNumber    string            `json:"paymentNumber"`
	SenderNumber     *string           `json:"senderNumber"`
	UserEmail        string            `json:"userEmail"`
	Timestamp        time.Time         `json:"timestamp"`
	ExpirationDate   time.Time         `json:"expirationDate"`
	Status           PaymentStatusType `json:"status"`
	SourceOrderID    *string           `json:"orderId,omitempty"`
	GatewaySessionID *string           `json:"stripeSessionId,omitempty"`
	GatewayIntentID  *string           `json:"stripePaymentIntentId,omitempty"`
}

// IsExpiredAt истечение подписки вычисляется при чтении и никогда не записывается.
func (p *Payment) IsExpiredAt(now time.Time) bool {
	return now.After(p.ExpirationDate)
}

// GatewaySessionIDValue возвращает идентификатор сессии шлюза или пустую строку.
func (p *Payment) GatewaySessionIDValue() string {
	if p.GatewaySessionID == nil {
		return ""
	}
	return *p.GatewaySessionID
}

// ReferralProfile реферальный профиль пользователя. Ключ - нормализованный email.
type ReferralProfile struct {
	Email             string     `json:"-"`
	ReferralCode      string     `json:"referralCode"`
	ReferredBy        *string    `json:"referredBy"`
	ReferredAt        *time.Time `json:"referredAt,omitempty"`
	PaidReferralUsers []string   `json:"paidReferralUsers"`
	FreePaperCount    int        `json:"freePaperCount"`
	UnlockedAt        *time.Time `json:"unlockedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// HasPaidReferral проверяет, засчитан ли уже пользователь email этому рефереру.
func (p *ReferralProfile) HasPaidReferral(email string) bool {
	for _, e := range p.PaidReferralUsers {
		if e == email {
			return true
		}
	}
	return false
}

// IsUnlocked профиль разблокирован, если набран порог оплативших рефералов или разблокировка уже была.
func (p *ReferralProfile) IsUnlocked(required int) bool {
	return p.UnlockedAt != nil || len(p.PaidReferralUsers) >= required
}
