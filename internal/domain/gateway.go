package domain

import "github.com/shopspring/decimal"

// CheckoutCompleted оплаченная сессия платежного шлюза, приведенная к нашим понятиям.
type CheckoutCompleted struct {
	SessionID       string
	PaymentIntentID string
	UserEmail       string
	Plan            string
	FrontendPlan    string
	Books           []string
	Amount          decimal.Decimal
}

// TransactionID идентификатор платежа в реестре: payment intent, а при его отсутствии - сессия.
func (c *CheckoutCompleted) TransactionID() string {
	if c.PaymentIntentID != "" {
		return c.PaymentIntentID
	}
	return c.SessionID
}

type CheckoutRequest struct {
	UserEmail string
	Plan      Plan
	Books     []string
	BaseURL   string
}

type CheckoutSession struct {
	SessionID   string
	CheckoutURL string
}
