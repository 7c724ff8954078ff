package stripegw

import (
	"encoding/json"
	"fmt"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookVerifier проверяет подпись событий Stripe и приводит оплаченную checkout сессию к domain.CheckoutCompleted.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// ParseCheckoutCompleted возвращает nil без ошибки для всех событий, кроме checkout.session.completed
// со статусом оплаты paid.
func (v *WebhookVerifier) ParseCheckoutCompleted(payload []byte, signature string) (*domain.CheckoutCompleted, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrBadSignature, err.Error())
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted || event.Data == nil {
		return nil, nil //nolint:nilnil
	}

	var s stripe.CheckoutSession
	if err = json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: parse checkout session: %s", domain.ErrValidation, err.Error())
	}
	if s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, nil //nolint:nilnil
	}

	return convertSession(&s), nil
}

func convertSession(s *stripe.CheckoutSession) *domain.CheckoutCompleted {
	email := s.Metadata[metaUserEmail]
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	if email == "" {
		email = s.CustomerEmail
	}

	var intentID string
	if s.PaymentIntent != nil {
		intentID = s.PaymentIntent.ID
	}

	return &domain.CheckoutCompleted{
		SessionID:       s.ID,
		PaymentIntentID: intentID,
		UserEmail:       email,
		Plan:            s.Metadata[metaPlan],
		FrontendPlan:    s.Metadata[metaFrontendPlan],
		Books:           parseBooks(s.Metadata[metaBooks]),
		Amount:          decimal.NewFromInt(s.AmountTotal).Div(minorUnits),
	}
}

// parseBooks список книг хранится в metadata JSON строкой. Все, что не разбирается, считается пустым списком.
func parseBooks(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var books []string
	if err := json.Unmarshal([]byte(raw), &books); err != nil || books == nil {
		return []string{}
	}
	return books
}
