package stripegw

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

const DefaultCurrency = "pkr"

// Ключи metadata сессии. По ним webhook восстанавливает, что именно было оплачено.
const (
	metaUserEmail    = "userEmail"
	metaPlan         = "plan"
	metaFrontendPlan = "frontendPlan"
	metaBooks        = "books"
)

var minorUnits = decimal.NewFromInt(100) //nolint:mnd

// Client создает checkout сессии Stripe.
type Client struct {
	sessions session.Client
	currency string
}

func NewClient(secretKey, currency string, l *logrus.Logger) *Client {
	if currency == "" {
		currency = DefaultCurrency
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		LeveledLogger: logger.Component(l, "stripe"),
	})
	return &Client{
		sessions: session.Client{B: backend, Key: secretKey},
		currency: currency,
	}
}

// SetBackend подменяет транспорт к API Stripe.
func (c *Client) SetBackend(b stripe.Backend) *Client {
	c.sessions.B = b
	return c
}

// CreateCheckoutSession создает сессию оплаты одного плана. Сумма передается в минимальных единицах валюты.
func (c *Client) CreateCheckoutSession(
	ctx context.Context,
	req domain.CheckoutRequest,
) (*domain.CheckoutSession, error) {
	books, err := json.Marshal(req.Books)
	if err != nil {
		return nil, fmt.Errorf("stripe: encode books: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Plan.Name),
					},
					UnitAmount: stripe.Int64(req.Plan.Amount.Mul(minorUnits).IntPart()),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.BaseURL + "/?payment=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(req.BaseURL + "/?payment=cancel"),
	}
	params.Context = ctx
	if req.UserEmail != "" {
		params.CustomerEmail = stripe.String(req.UserEmail)
	}
	params.AddMetadata(metaUserEmail, req.UserEmail)
	params.AddMetadata(metaPlan, req.Plan.BackendPlan)
	params.AddMetadata(metaFrontendPlan, req.Plan.Key)
	params.AddMetadata(metaBooks, string(books))

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &domain.CheckoutSession{
		SessionID:   s.ID,
		CheckoutURL: s.URL,
	}, nil
}
