package stripegw

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	stripe "github.com/stripe/stripe-go/v82"
)

type ClientTestSuite struct {
	suite.Suite
	server *httptest.Server
	form   url.Values
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.True(strings.HasSuffix(r.URL.Path, "/checkout/sessions"), r.URL.Path)
		body, err := io.ReadAll(r.Body)
		s.NoError(err)
		s.form, err = url.ParseQuery(string(body))
		s.NoError(err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_123","object":"checkout.session",` +
			`"url":"https://checkout.stripe.com/c/pay/cs_test_123"}`))
	}))

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(s.server.URL),
		HTTPClient:        s.server.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	s.client = NewClient("sk_test_123", "", logrus.New()).SetBackend(backend)
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) TestCreateCheckoutSession() {
	plan, err := domain.LookupPlan("monthly_specific")
	s.Require().NoError(err)

	res, err := s.client.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{
		UserEmail: "buyer@example.com",
		Plan:      plan,
		Books:     []string{"physics"},
		BaseURL:   "https://paperify.example",
	})
	s.Require().NoError(err)
	s.Equal("cs_test_123", res.SessionID)
	s.Equal("https://checkout.stripe.com/c/pay/cs_test_123", res.CheckoutURL)

	s.Equal("payment", s.form.Get("mode"))
	s.Equal("buyer@example.com", s.form.Get("customer_email"))
	s.Equal("pkr", s.form.Get("line_items[0][price_data][currency]"))
	s.Equal("90000", s.form.Get("line_items[0][price_data][unit_amount]"))
	s.Equal("Monthly Specific (30 Papers)", s.form.Get("line_items[0][price_data][product_data][name]"))
	s.Equal("buyer@example.com", s.form.Get("metadata[userEmail]"))
	s.Equal("monthly_specific", s.form.Get("metadata[frontendPlan]"))
	s.Equal(`["physics"]`, s.form.Get("metadata[books]"))
	s.Equal("https://paperify.example/?payment=cancel", s.form.Get("cancel_url"))
}

func (s *ClientTestSuite) TestAnonymousCheckout() {
	plan, err := domain.LookupPlan("weekly_unlimited")
	s.Require().NoError(err)

	_, err = s.client.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{
		Plan:    plan,
		Books:   []string{},
		BaseURL: "http://localhost:8080",
	})
	s.Require().NoError(err)
	s.Empty(s.form.Get("customer_email"))
	s.Equal("60000", s.form.Get("line_items[0][price_data][unit_amount]"))
}
