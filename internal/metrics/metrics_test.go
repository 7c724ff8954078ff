package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
	c *Collector
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (s *MetricsTestSuite) SetupTest() {
	s.c = New()
}

func (s *MetricsTestSuite) TestCounters() {
	s.c.OrderTransition(domain.OrderStatusSubmitted)
	s.c.OrderTransition(domain.OrderStatusSubmitted)
	s.c.PaymentApproved("gateway")
	s.c.ReferralCredited()
	s.c.GatewayWebhook("duplicate")

	s.InDelta(2, testutil.ToFloat64(s.c.orderTransitions.WithLabelValues("submitted")), 0)
	s.InDelta(1, testutil.ToFloat64(s.c.paymentsApproved.WithLabelValues("gateway")), 0)
	s.InDelta(1, testutil.ToFloat64(s.c.referralCredits), 0)
	s.InDelta(1, testutil.ToFloat64(s.c.gatewayWebhooks.WithLabelValues("duplicate")), 0)
}

func (s *MetricsTestSuite) TestHandler() {
	s.c.ObserveHTTP(http.MethodGet, "/health", "200", 0.01)

	rec := httptest.NewRecorder()
	s.c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	s.Require().NoError(err)
	s.Contains(string(body), `paperify_http_requests_total{method="GET",path="/health",status_code="200"} 1`)
}
