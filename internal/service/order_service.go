package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/logger"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultOrderTTL = 15 * time.Minute

	orderIDSuffixLen   = 6
	orderCreateRetries = 3
)

var (
	transactionIDRe = regexp.MustCompile(`^\d{10,20}$`)
	senderNumberRe  = regexp.MustCompile(`^\d{4,15}$`)
)

type OrderConfig struct {
	TTL           time.Duration
	PaymentNumber string
}

// OrderService жизненный цикл заказов ручной оплаты:
// created -> submitted -> {approved, rejected} и created -> expired.
type OrderService struct {
	uow        uow.UOW
	orderRepo  OrderRepository
	referrals  *ReferralService
	authorizer Authorizer
	conf       OrderConfig
	metrics    Metrics
	l          *logrus.Entry
	now        func() time.Time
}

func NewOrderService(
	u uow.UOW,
	referrals *ReferralService,
	authorizer Authorizer,
	conf OrderConfig,
	l *logrus.Logger,
) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if conf.TTL <= 0 {
		conf.TTL = DefaultOrderTTL
	}
	return &OrderService{
		uow:        u,
		orderRepo:  orderRepo,
		referrals:  referrals,
		authorizer: authorizer,
		conf:       conf,
		metrics:    noopMetrics{},
		l:          logger.Component(l, "orders"),
		now:        utcNow,
	}, nil
}

// SetClock подменяет источник времени.
func (o *OrderService) SetClock(now func() time.Time) *OrderService {
	o.now = now
	return o
}

// SetMetrics устанавливает получателя счетчиков.
func (o *OrderService) SetMetrics(m Metrics) *OrderService {
	o.metrics = m
	return o
}

type CreateOrderArgs struct {
	PlanKey   string
	UserEmail string
	Books     []string
}

// CreateOrder создает заказ в статусе created со сроком жизни conf.TTL.
// Для неизвестного плана возвращает domain.ErrInvalidPlan.
func (o *OrderService) CreateOrder(ctx context.Context, args CreateOrderArgs) (*domain.Order, error) {
	plan, err := domain.LookupPlan(args.PlanKey)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	email := domain.NormalizeEmail(args.UserEmail)
	if email == "" {
		return nil, fmt.Errorf("%w: userEmail is required", domain.ErrValidation)
	}

	books := args.Books
	if books == nil {
		books = []string{}
	}

	now := o.now()
	order := domain.Order{
		UserEmail:     email,
		Plan:          plan.BackendPlan,
		FrontendPlan:  plan.Key,
		Amount:        plan.Amount,
		Books:         books,
		PaymentNumber: o.conf.PaymentNumber,
		Status:        domain.OrderStatusCreated,
		CreatedAt:     now,
		ExpiresAt:     now.Add(o.conf.TTL),
	}

	// коллизия идентификатора маловероятна, но первичный ключ ее все равно поймает.
	for range orderCreateRetries {
		order.OrderID = newOrderID(now)
		created, createErr := o.orderRepo.Create(ctx, order)
		if createErr == nil {
			o.metrics.OrderTransition(domain.OrderStatusCreated)
			return created, nil
		}
		if !errors.Is(createErr, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("creating order: %w", createErr)
		}
	}
	return nil, fmt.Errorf("creating order: %w", domain.ErrDuplicateKey)
}

func newOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:orderIDSuffixLen]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

type SubmitOrderArgs struct {
	OrderID       string
	TransactionID string
	SenderNumber  string
	ScreenshotRef string
}

// Validate проверяет формат полей отправки. Вызывается и до сохранения скриншота, и внутри SubmitOrder.
func (a SubmitOrderArgs) Validate() error {
	if strings.TrimSpace(a.OrderID) == "" {
		return fmt.Errorf("%w: order ID is required", domain.ErrValidation)
	}
	if !transactionIDRe.MatchString(a.TransactionID) {
		return fmt.Errorf("%w: transaction ID must be numeric (10-20 digits)", domain.ErrValidation)
	}
	if !senderNumberRe.MatchString(a.SenderNumber) {
		return fmt.Errorf("%w: sender number must be numeric (4-15 digits)", domain.ErrValidation)
	}
	if strings.TrimSpace(a.ScreenshotRef) == "" {
		return fmt.Errorf("%w: screenshot is required", domain.ErrValidation)
	}
	return nil
}

// SubmitOrder переводит заказ в submitted с данными перевода.
//
// Алгоритм работы:
//  1. Валидирует входные данные.
//  2. Внутри транзакции блокирует строку заказа.
//  3. Проверяет статус, затем срок жизни. Просроченный заказ переводится в expired, и этот переход
//     фиксируется, хотя вызов возвращает domain.ErrExpired.
//  4. Под блокировкой номера транзакции проверяет его уникальность среди платежей и других заказов.
func (o *OrderService) SubmitOrder(ctx context.Context, args SubmitOrderArgs) (*domain.Order, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	var submitted *domain.Order
	var expired bool
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, err := txOrderRepo(tx)
		if err != nil {
			return err
		}
		paymentRepo, err := txPaymentRepo(tx)
		if err != nil {
			return err
		}
		locker, err := txLocker(tx)
		if err != nil {
			return err
		}

		order, err := orderRepo.FindByOrderIDForUpdate(c, args.OrderID)
		if err != nil {
			return fmt.Errorf("submitting order: %w", err)
		}
		if order.Status != domain.OrderStatusCreated {
			return fmt.Errorf("%w: order is already %s", domain.ErrInvalidState, order.Status)
		}

		now := o.now()
		if order.IsExpiredAt(now) {
			order.Status = domain.OrderStatusExpired
			if _, updErr := orderRepo.Update(c, *order); updErr != nil {
				return fmt.Errorf("expiring order: %w", updErr)
			}
			expired = true
			return nil
		}

		// порядок блокировок: строка заказа, затем номер транзакции.
		if lockErr := locker.Lock(c, repoargs.LockTransactionID, args.TransactionID); lockErr != nil {
			return fmt.Errorf("submitting order: %w", lockErr)
		}

		inPayments, err := paymentRepo.ExistsByTransactionID(c, args.TransactionID)
		if err != nil {
			return fmt.Errorf("submitting order: %w", err)
		}
		inOrders, err := orderRepo.TransactionIDTaken(c, args.TransactionID, order.OrderID)
		if err != nil {
			return fmt.Errorf("submitting order: %w", err)
		}
		if inPayments || inOrders {
			return fmt.Errorf("%w: transaction ID has already been used", domain.ErrDuplicateTransaction)
		}

		order.Status = domain.OrderStatusSubmitted
		order.TransactionID = &args.TransactionID
		order.SenderNumber = &args.SenderNumber
		order.ScreenshotRef = &args.ScreenshotRef
		order.SubmittedAt = &now

		submitted, err = orderRepo.Update(c, *order)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateKey) {
				return fmt.Errorf("%w: transaction ID has already been used", domain.ErrDuplicateTransaction)
			}
			return fmt.Errorf("submitting order: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if expired {
		o.metrics.OrderTransition(domain.OrderStatusExpired)
		o.l.WithField("orderID", args.OrderID).Info("order expired on submission")
		return nil, domain.ErrExpired
	}

	o.metrics.OrderTransition(domain.OrderStatusSubmitted)
	o.l.WithField("orderID", submitted.OrderID).Info("order submitted")
	return submitted, nil
}

type ReviewOrderArgs struct {
	OrderID  string
	Action   domain.ReviewActionType
	Note     string
	Reviewer string
}

type ReviewResult struct {
	Order   *domain.Order
	Payment *domain.Payment
	Reward  *CreditResult
}

// ReviewOrder одобряет или отклоняет отправленный заказ. Доступно только привилегированному вызывающему.
//
// При одобрении внутри одной транзакции:
//  1. Проверяет, был ли у пользователя одобренный платеж до этого.
//  2. Добавляет платеж в реестр (дубликат номера транзакции - domain.ErrDuplicateTransaction).
//  3. Переводит заказ в approved.
//  4. Если платеж первый - засчитывает пользователя рефереру.
func (o *OrderService) ReviewOrder(ctx context.Context, args ReviewOrderArgs) (*ReviewResult, error) {
	if o.authorizer == nil || !o.authorizer.CanReviewPayments(args.Reviewer) {
		return nil, domain.ErrForbidden
	}
	if args.Action != domain.ReviewActionApprove && args.Action != domain.ReviewActionReject {
		return nil, fmt.Errorf("%w: orderId and valid action are required", domain.ErrValidation)
	}
	if strings.TrimSpace(args.OrderID) == "" {
		return nil, fmt.Errorf("%w: orderId and valid action are required", domain.ErrValidation)
	}

	var res ReviewResult
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, err := txOrderRepo(tx)
		if err != nil {
			return err
		}

		order, err := orderRepo.FindByOrderIDForUpdate(c, args.OrderID)
		if err != nil {
			return fmt.Errorf("reviewing order: %w", err)
		}
		if order.Status != domain.OrderStatusSubmitted {
			return fmt.Errorf("%w: order status is %s, only submitted orders can be reviewed",
				domain.ErrInvalidState, order.Status)
		}

		now := o.now()
		reviewer := domain.NormalizeEmail(args.Reviewer)
		order.ReviewedAt = &now
		order.ReviewedBy = &reviewer

		if args.Action == domain.ReviewActionReject {
			note := defaultIfBlank(args.Note, "Rejected by admin.")
			order.Status = domain.OrderStatusRejected
			order.ReviewNote = &note
			res.Order, err = orderRepo.Update(c, *order)
			if err != nil {
				return fmt.Errorf("rejecting order: %w", err)
			}
			return nil
		}

		return o.approveTx(c, tx, order, args.Note, &res)
	})
	if txErr != nil {
		return nil, txErr
	}

	o.metrics.OrderTransition(res.Order.Status)
	if res.Payment != nil {
		o.metrics.PaymentApproved(PaymentSourceManual)
	}
	o.l.WithFields(logrus.Fields{
		"orderID":  res.Order.OrderID,
		"status":   res.Order.Status,
		"reviewer": args.Reviewer,
	}).Info("order reviewed")
	return &res, nil
}

func (o *OrderService) approveTx(
	ctx context.Context,
	tx uow.TX,
	order *domain.Order,
	note string,
	res *ReviewResult,
) error {
	orderRepo, err := txOrderRepo(tx)
	if err != nil {
		return err
	}
	paymentRepo, err := txPaymentRepo(tx)
	if err != nil {
		return err
	}

	hadApprovedBefore, err := paymentRepo.HasApprovedForUser(ctx, order.UserEmail)
	if err != nil {
		return fmt.Errorf("approving order: %w", err)
	}

	now := *order.ReviewedAt
	frontendPlan := defaultIfBlank(order.FrontendPlan, order.Plan)
	paymentNumber := defaultIfBlank(order.PaymentNumber, o.conf.PaymentNumber)
	sourceOrderID := order.OrderID

	payment, err := appendApprovedTx(ctx, tx, domain.Payment{
		Plan:           order.Plan,
		FrontendPlan:   frontendPlan,
		Amount:         order.Amount,
		TransactionID:  order.TransactionIDValue(),
		ScreenshotRef:  order.ScreenshotRef,
		Books:          order.Books,
		PaymentNumber:  paymentNumber,
		SenderNumber:   order.SenderNumber,
		UserEmail:      order.UserEmail,
		Timestamp:      now,
		ExpirationDate: domain.ExpirationDate(frontendPlan, now),
		SourceOrderID:  &sourceOrderID,
	})
	if err != nil {
		return err
	}

	note = defaultIfBlank(note, "Approved by admin.")
	order.Status = domain.OrderStatusApproved
	order.ReviewNote = &note
	approved, err := orderRepo.Update(ctx, *order)
	if err != nil {
		return fmt.Errorf("approving order: %w", err)
	}

	res.Order = approved
	res.Payment = payment

	if !hadApprovedBefore && o.referrals != nil {
		reward, creditErr := o.referrals.creditReferrerTx(ctx, tx, order.UserEmail)
		if creditErr != nil {
			return creditErr
		}
		res.Reward = reward
	}
	return nil
}

// GetOrder возвращает заказ владельцу или привилегированному вызывающему.
func (o *OrderService) GetOrder(ctx context.Context, orderID, caller string) (*domain.Order, error) {
	order, err := o.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	caller = domain.NormalizeEmail(caller)
	isOwner := caller != "" && caller == order.UserEmail
	if !isOwner && (o.authorizer == nil || !o.authorizer.CanReviewPayments(caller)) {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

// PendingOrders отправленные на проверку заказы, свежие первыми.
func (o *OrderService) PendingOrders(ctx context.Context, caller string) ([]domain.Order, error) {
	if o.authorizer == nil || !o.authorizer.CanReviewPayments(caller) {
		return nil, domain.ErrForbidden
	}
	orders, err := o.orderRepo.GetByStatus(ctx, repoargs.OrdersByStatus{Status: domain.OrderStatusSubmitted})
	if err != nil {
		return nil, fmt.Errorf("getting pending orders: %w", err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return pendingSortKey(orders[i]).After(pendingSortKey(orders[j]))
	})
	return orders, nil
}

func pendingSortKey(order domain.Order) time.Time {
	if order.SubmittedAt != nil {
		return *order.SubmittedAt
	}
	return order.CreatedAt
}

func defaultIfBlank(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}
