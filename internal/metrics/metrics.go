package metrics

import (
	"net/http"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paperify"

// Collector счетчики сервиса на собственном реестре.
type Collector struct {
	registry *prometheus.Registry

	orderTransitions    *prometheus.CounterVec
	paymentsApproved    *prometheus.CounterVec
	referralCredits     prometheus.Counter
	gatewayWebhooks     *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Manual payment order transitions by target status",
		}, []string{"status"}),
		paymentsApproved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_approved_total",
			Help:      "Payments appended to the ledger by source",
		}, []string{"source"}),
		referralCredits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referral_credits_total",
			Help:      "Paid users credited to their referrers",
		}),
		gatewayWebhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_webhooks_total",
			Help:      "Payment gateway webhook deliveries by outcome",
		}, []string{"result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.orderTransitions,
		c.paymentsApproved,
		c.referralCredits,
		c.gatewayWebhooks,
		c.httpRequestsTotal,
		c.httpRequestDuration,
	)
	return c
}

func (c *Collector) OrderTransition(status domain.OrderStatusType) {
	c.orderTransitions.WithLabelValues(string(status)).Inc()
}

func (c *Collector) PaymentApproved(source string) {
	c.paymentsApproved.WithLabelValues(source).Inc()
}

func (c *Collector) ReferralCredited() {
	c.referralCredits.Inc()
}

func (c *Collector) GatewayWebhook(result string) {
	c.gatewayWebhooks.WithLabelValues(result).Inc()
}

// ObserveHTTP path - шаблон маршрута, а не фактический URL, чтобы не раздувать число серий.
func (c *Collector) ObserveHTTP(method, path, statusCode string, seconds float64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// Handler отдает метрики в формате prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
