package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 5 * time.Second
)

const (
	RouteGroup            = "/api"
	CreateOrderRoute      = "/payment/create-order"
	SubmitOrderRoute      = "/payment/submit-order"
	OrderRoute            = "/payment/order/:orderId"
	PaymentStatusRoute    = "/payment/status/:transactionId"
	ReviewRoute           = "/admin/payment/review"
	PendingRoute          = "/admin/payment/pending"
	CheckoutRoute         = "/stripe/create-checkout-session"
	WebhookRoute          = "/stripe/webhook"
	ReferralStatusRoute   = "/referral/status"
	ReferralApplyRoute    = "/referral/apply"
	FreePaperRoute        = "/referral/free-paper"
	SubscriptionRoute     = "/user/subscription"
	SubscriptionLockRoute = "/user/subscription/lock-book"

	HealthRoute  = "/health"
	MetricsRoute = "/metrics"
)

// RouterMetrics сборщик http метрик с обработчиком для экспорта.
type RouterMetrics interface {
	middlewares.HTTPObserver
	Handler() http.Handler
}

type RouterArgs struct {
	Logger          *logrus.Logger
	OrderService    OrderServicer
	LedgerService   LedgerServicer
	ReferralService ReferralServicer
	GatewayService  GatewayServicer
	Screenshots     ScreenshotStore
	Reviewers       middlewares.ReviewerChecker
	Metrics         RouterMetrics
	JWTSecretKey    []byte
	PublishableKey  string
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router init: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	if args.Metrics != nil {
		r.Use(middlewares.Metrics(args.Metrics))
		r.GET(MetricsRoute, gin.WrapH(args.Metrics.Handler()))
	}
	r.Use(middlewares.Errors())

	r.GET(HealthRoute, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	paymentHandler := NewPaymentHandler(args.OrderService, args.LedgerService, args.Screenshots)
	adminHandler := NewAdminHandler(args.OrderService)
	stripeHandler := NewStripeHandler(args.GatewayService, args.PublishableKey)
	referralHandler := NewReferralHandler(args.ReferralService)
	subscriptionHandler := NewSubscriptionHandler(args.LedgerService)

	authRequired := middlewares.AuthRequired(args.JWTSecretKey)
	optionalAuth := middlewares.OptionalAuth(args.JWTSecretKey)
	reviewerRequired := middlewares.ReviewerRequired(args.Reviewers)

	api := r.Group(RouteGroup)

	// публичные роуты, webhook защищен подписью шлюза.
	api.POST(CreateOrderRoute, optionalAuth, paymentHandler.CreateOrder)
	api.POST(SubmitOrderRoute, paymentHandler.SubmitOrder)
	api.GET(PaymentStatusRoute, paymentHandler.PaymentStatus)
	api.POST(CheckoutRoute, optionalAuth, stripeHandler.CreateCheckoutSession)
	api.POST(WebhookRoute, stripeHandler.Webhook)

	api.GET(OrderRoute, authRequired, paymentHandler.GetOrder)
	api.POST(ReviewRoute, authRequired, reviewerRequired, adminHandler.Review)
	api.GET(PendingRoute, authRequired, reviewerRequired, adminHandler.Pending)

	api.GET(ReferralStatusRoute, authRequired, referralHandler.Status)
	api.POST(ReferralApplyRoute, authRequired, referralHandler.Apply)
	api.POST(FreePaperRoute, authRequired, referralHandler.FreePaper)

	api.GET(SubscriptionRoute, authRequired, subscriptionHandler.Index)
	api.POST(SubscriptionLockRoute, authRequired, subscriptionHandler.LockBook)
	return r, nil
}
