package stripegw

import (
	"encoding/json"
	"testing"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type WebhookTestSuite struct {
	suite.Suite
	verifier *WebhookVerifier
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookTestSuite))
}

func (s *WebhookTestSuite) SetupTest() {
	s.verifier = NewWebhookVerifier(testWebhookSecret)
}

func checkoutEvent(eventType string, object map[string]any) []byte {
	payload, _ := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data":        map[string]any{"object": object},
	})
	return payload
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	}).Header
}

func paidSession() map[string]any {
	return map[string]any{
		"id":             "cs_test_123",
		"object":         "checkout.session",
		"payment_status": "paid",
		"payment_intent": "pi_test_456",
		"amount_total":   90000,
		"metadata": map[string]string{
			"userEmail":    "Buyer@Example.com",
			"plan":         "monthly_specific",
			"frontendPlan": "monthly_specific",
			"books":        `["physics","chemistry"]`,
		},
	}
}

func (s *WebhookTestSuite) TestPaidCheckout() {
	payload := checkoutEvent("checkout.session.completed", paidSession())

	event, err := s.verifier.ParseCheckoutCompleted(payload, sign(payload, testWebhookSecret))
	s.Require().NoError(err)
	s.Require().NotNil(event)
	s.Equal("cs_test_123", event.SessionID)
	s.Equal("pi_test_456", event.PaymentIntentID)
	s.Equal("pi_test_456", event.TransactionID())
	s.Equal("Buyer@Example.com", event.UserEmail)
	s.Equal("monthly_specific", event.Plan)
	s.Equal([]string{"physics", "chemistry"}, event.Books)
	s.True(decimal.NewFromInt(900).Equal(event.Amount))
}

func (s *WebhookTestSuite) TestBadSignature() {
	payload := checkoutEvent("checkout.session.completed", paidSession())

	_, err := s.verifier.ParseCheckoutCompleted(payload, sign(payload, "whsec_other"))
	s.ErrorIs(err, domain.ErrBadSignature)

	_, err = s.verifier.ParseCheckoutCompleted(payload, "garbage")
	s.ErrorIs(err, domain.ErrBadSignature)
}

func (s *WebhookTestSuite) TestTamperedPayload() {
	payload := checkoutEvent("checkout.session.completed", paidSession())
	header := sign(payload, testWebhookSecret)

	tampered := checkoutEvent("checkout.session.completed", map[string]any{
		"id": "cs_test_evil", "object": "checkout.session", "payment_status": "paid",
	})
	_, err := s.verifier.ParseCheckoutCompleted(tampered, header)
	s.ErrorIs(err, domain.ErrBadSignature)
}

func (s *WebhookTestSuite) TestOtherEventsIgnored() {
	payload := checkoutEvent("invoice.paid", map[string]any{"id": "in_1", "object": "invoice"})

	event, err := s.verifier.ParseCheckoutCompleted(payload, sign(payload, testWebhookSecret))
	s.Require().NoError(err)
	s.Nil(event)
}

func (s *WebhookTestSuite) TestUnpaidCheckoutIgnored() {
	session := paidSession()
	session["payment_status"] = "unpaid"
	payload := checkoutEvent("checkout.session.completed", session)

	event, err := s.verifier.ParseCheckoutCompleted(payload, sign(payload, testWebhookSecret))
	s.Require().NoError(err)
	s.Nil(event)
}

func (s *WebhookTestSuite) TestFallbacks() {
	payload := checkoutEvent("checkout.session.completed", map[string]any{
		"id":               "cs_test_789",
		"object":           "checkout.session",
		"payment_status":   "paid",
		"amount_total":     130000,
		"customer_details": map[string]any{"email": "details@example.com"},
		"metadata":         map[string]string{"books": "not json"},
	})

	event, err := s.verifier.ParseCheckoutCompleted(payload, sign(payload, testWebhookSecret))
	s.Require().NoError(err)
	s.Require().NotNil(event)
	s.Equal("details@example.com", event.UserEmail)
	s.Equal("cs_test_789", event.TransactionID())
	s.Equal([]string{}, event.Books)
	s.Empty(event.Plan)
}
