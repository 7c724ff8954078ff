package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/logger"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	defaultGatewayPlan = "monthly_unlimited"

	WebhookResultRecorded  = "recorded"
	WebhookResultDuplicate = "duplicate"
	WebhookResultIgnored   = "ignored"
	WebhookResultRejected  = "rejected"
	WebhookResultFailed    = "failed"
)

// GatewayService связывает внешний платежный шлюз с реестром платежей.
type GatewayService struct {
	uow         uow.UOW
	paymentRepo PaymentRepository
	referrals   *ReferralService
	checkout    CheckoutClient
	parser      WebhookParser
	metrics     Metrics
	l           *logrus.Entry
	now         func() time.Time
}

// NewGatewayService checkout и parser могут быть nil, если шлюз не настроен.
func NewGatewayService(
	u uow.UOW,
	referrals *ReferralService,
	checkout CheckoutClient,
	parser WebhookParser,
	l *logrus.Logger,
) (*GatewayService, error) {
	paymentRepo, err := uow.GetRepositoryAs[PaymentRepository](u, uow.RepositoryName(repoargs.PaymentRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &GatewayService{
		uow:         u,
		paymentRepo: paymentRepo,
		referrals:   referrals,
		checkout:    checkout,
		parser:      parser,
		metrics:     noopMetrics{},
		l:           logger.Component(l, "gateway"),
		now:         utcNow,
	}, nil
}

// SetClock подменяет источник времени.
func (g *GatewayService) SetClock(now func() time.Time) *GatewayService {
	g.now = now
	return g
}

// SetMetrics устанавливает получателя счетчиков.
func (g *GatewayService) SetMetrics(m Metrics) *GatewayService {
	g.metrics = m
	return g
}

type CreateCheckoutArgs struct {
	UserEmail string
	PlanKey   string
	Books     []string
	BaseURL   string
}

// CreateCheckout создает платежную сессию шлюза для плана.
func (g *GatewayService) CreateCheckout(ctx context.Context, args CreateCheckoutArgs) (*domain.CheckoutSession, error) {
	if g.checkout == nil {
		return nil, domain.ErrUnconfigured
	}
	plan, err := domain.LookupPlan(args.PlanKey)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	books := args.Books
	if books == nil {
		books = []string{}
	}

	session, err := g.checkout.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		UserEmail: domain.NormalizeEmail(args.UserEmail),
		Plan:      plan,
		Books:     books,
		BaseURL:   strings.TrimRight(args.BaseURL, "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	return session, nil
}

type WebhookResult struct {
	Outcome string
	Payment *domain.Payment
	Reward  *CreditResult
}

// HandleWebhook проверяет и обрабатывает событие шлюза. Неподходящие события и повторы
// подтверждаются без ошибки, чтобы шлюз не повторял доставку.
func (g *GatewayService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if g.parser == nil {
		return nil, domain.ErrUnconfigured
	}
	if signature == "" {
		g.metrics.GatewayWebhook(WebhookResultRejected)
		return nil, fmt.Errorf("%w: missing signature header", domain.ErrBadSignature)
	}

	event, err := g.parser.ParseCheckoutCompleted(payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrBadSignature) {
			g.metrics.GatewayWebhook(WebhookResultRejected)
			g.l.WithError(err).Warn("webhook rejected")
		}
		return nil, err //nolint:wrapcheck
	}
	if event == nil {
		g.metrics.GatewayWebhook(WebhookResultIgnored)
		return &WebhookResult{Outcome: WebhookResultIgnored}, nil
	}

	res, err := g.RecordCheckout(ctx, *event)
	if err != nil {
		g.metrics.GatewayWebhook(WebhookResultFailed)
		g.l.WithError(err).WithField("sessionID", event.SessionID).Error("webhook processing failed")
		return nil, err
	}
	g.metrics.GatewayWebhook(res.Outcome)
	return res, nil
}

// RecordCheckout добавляет в реестр платеж из оплаченной сессии шлюза.
//
// Ключ идемпотентности - идентификатор сессии: повторное событие ничего не меняет.
// Для первого одобренного платежа пользователя засчитывает его рефереру в той же транзакции.
func (g *GatewayService) RecordCheckout(ctx context.Context, event domain.CheckoutCompleted) (*WebhookResult, error) {
	if event.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}

	// быстрый путь для повторной доставки, окончательная проверка под блокировкой в appendApprovedTx.
	seen, err := g.paymentRepo.ExistsByGatewaySessionID(ctx, event.SessionID)
	if err != nil {
		return nil, fmt.Errorf("recording checkout: %w", err)
	}
	if seen {
		return &WebhookResult{Outcome: WebhookResultDuplicate}, nil
	}

	plan := defaultIfBlank(event.Plan, defaultGatewayPlan)
	frontendPlan := defaultIfBlank(event.FrontendPlan, plan)
	userEmail := domain.NormalizeEmail(event.UserEmail)
	books := event.Books
	if books == nil {
		books = []string{}
	}
	sessionID := event.SessionID
	var intentID *string
	if event.PaymentIntentID != "" {
		intentID = &event.PaymentIntentID
	}

	var res WebhookResult
	txErr := g.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		paymentRepo, err := txPaymentRepo(tx)
		if err != nil {
			return err
		}

		hadApprovedBefore := false
		if userEmail != "" {
			hadApprovedBefore, err = paymentRepo.HasApprovedForUser(c, userEmail)
			if err != nil {
				return fmt.Errorf("recording checkout: %w", err)
			}
		}

		now := g.now()
		payment, err := appendApprovedTx(c, tx, domain.Payment{
			Plan:             plan,
			FrontendPlan:     frontendPlan,
			Amount:           event.Amount,
			TransactionID:    event.TransactionID(),
			Books:            books,
			PaymentNumber:    domain.GatewayPaymentNumber,
			UserEmail:        userEmail,
			Timestamp:        now,
			ExpirationDate:   domain.ExpirationDate(frontendPlan, now),
			GatewaySessionID: &sessionID,
			GatewayIntentID:  intentID,
		})
		if err != nil {
			return err
		}
		res.Payment = payment

		if !hadApprovedBefore && userEmail != "" && g.referrals != nil {
			res.Reward, err = g.referrals.creditReferrerTx(c, tx, userEmail)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, domain.ErrDuplicateTransaction) {
			g.l.WithField("sessionID", sessionID).Info("gateway session already recorded")
			return &WebhookResult{Outcome: WebhookResultDuplicate}, nil
		}
		return nil, txErr
	}

	res.Outcome = WebhookResultRecorded
	g.metrics.PaymentApproved(PaymentSourceGateway)
	g.l.WithFields(logrus.Fields{
		"sessionID": sessionID,
		"plan":      plan,
		"user":      userEmail,
	}).Info("gateway payment saved")
	return &res, nil
}
