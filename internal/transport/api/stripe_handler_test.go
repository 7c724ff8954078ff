package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/fsdevblog/paperify-pay/internal/transport/api/testutils"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type StripeHandlerTestSuite struct {
	handlerSuite
}

func TestStripeHandlerSuite(t *testing.T) {
	suite.Run(t, new(StripeHandlerTestSuite))
}

func (s *StripeHandlerTestSuite) TestCreateCheckoutSession() {
	s.Run("success", func() {
		s.gateway.EXPECT().CreateCheckout(gomock.Any(), service.CreateCheckoutArgs{
			UserEmail: s.userEmail,
			PlanKey:   "monthly_unlimited",
			Books:     []string{"Chemistry"},
			BaseURL:   "http://example.com",
		}).Return(&domain.CheckoutSession{
			SessionID:   "cs_test_1",
			CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
		}, nil).Times(1)

		status, body := s.doJSON(http.MethodPost, CheckoutRoute,
			`{"plan":"monthly_unlimited","books":["Chemistry"]}`, s.userToken)
		s.Equal(http.StatusOK, status)
		s.Equal(true, body["success"])
		s.Equal("cs_test_1", body["sessionId"])
		s.Equal("https://checkout.stripe.com/c/pay/cs_test_1", body["checkoutUrl"])
		s.Equal("pk_test_123", body["publishableKey"])
	})

	s.Run("forwarded_proto", func() {
		s.gateway.EXPECT().CreateCheckout(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, args service.CreateCheckoutArgs) (*domain.CheckoutSession, error) {
				s.Equal("https://example.com", args.BaseURL)
				s.Equal("guest@example.com", args.UserEmail)
				return &domain.CheckoutSession{SessionID: "cs_test_2"}, nil
			}).Times(1)

		status, _ := s.do(http.MethodPost, RouteGroup+CheckoutRoute,
			strings.NewReader(`{"plan":"weekly_unlimited","userEmail":"guest@example.com"}`), "",
			testutils.WithHeader("Content-Type", "application/json"),
			testutils.WithHeader("X-Forwarded-Proto", "https, http"))
		s.Equal(http.StatusOK, status)
	})

	s.Run("unconfigured", func() {
		s.gateway.EXPECT().CreateCheckout(gomock.Any(), gomock.Any()).
			Return(nil, domain.ErrUnconfigured).Times(1)

		status, body := s.doJSON(http.MethodPost, CheckoutRoute, `{"plan":"weekly_unlimited"}`, s.userToken)
		s.Equal(http.StatusInternalServerError, status)
		s.Equal(domain.ErrUnconfigured.Error(), body["error"])
	})

	s.Run("invalid_plan", func() {
		s.gateway.EXPECT().CreateCheckout(gomock.Any(), gomock.Any()).
			Return(nil, domain.ErrInvalidPlan).Times(1)

		status, body := s.doJSON(http.MethodPost, CheckoutRoute, `{"plan":"lifetime"}`, s.userToken)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("Invalid plan selected.", body["error"])
	})
}

func (s *StripeHandlerTestSuite) TestWebhook() {
	payload := `{"id":"evt_1","type":"checkout.session.completed"}`

	s.Run("received", func() {
		s.gateway.EXPECT().HandleWebhook(gomock.Any(), []byte(payload), "t=1,v1=abc").
			Return(&service.WebhookResult{Outcome: "processed"}, nil).Times(1)

		status, body := s.do(http.MethodPost, RouteGroup+WebhookRoute, strings.NewReader(payload), "",
			testutils.WithHeader(StripeSignatureHeader, "t=1,v1=abc"))
		s.Equal(http.StatusOK, status)
		s.Equal(map[string]any{"received": true}, body)
	})

	s.Run("bad_signature", func() {
		s.gateway.EXPECT().HandleWebhook(gomock.Any(), []byte(payload), "").
			Return(nil, fmt.Errorf("%w: missing signature header", domain.ErrBadSignature)).Times(1)

		status, body := s.do(http.MethodPost, RouteGroup+WebhookRoute, strings.NewReader(payload), "")
		s.Equal(http.StatusBadRequest, status)
		s.Equal(false, body["success"])
	})

	s.Run("processing_failure_is_private", func() {
		s.gateway.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("append payment: connection reset")).Times(1)

		status, body := s.do(http.MethodPost, RouteGroup+WebhookRoute, strings.NewReader(payload), "",
			testutils.WithHeader(StripeSignatureHeader, "t=1,v1=abc"))
		s.Equal(http.StatusInternalServerError, status)
		s.Equal("internal server error", body["error"])
	})
}
