package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

const (
	PaymentSourceManual  = "manual"
	PaymentSourceGateway = "gateway"
)

// LedgerService реестр одобренных платежей - единственный источник правды о праве доступа пользователя.
type LedgerService struct {
	uow         uow.UOW
	paymentRepo PaymentRepository
	now         func() time.Time
}

func NewLedgerService(u uow.UOW) (*LedgerService, error) {
	paymentRepo, err := uow.GetRepositoryAs[PaymentRepository](u, uow.RepositoryName(repoargs.PaymentRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &LedgerService{
		uow:         u,
		paymentRepo: paymentRepo,
		now:         utcNow,
	}, nil
}

// SetClock подменяет источник времени.
func (l *LedgerService) SetClock(now func() time.Time) *LedgerService {
	l.now = now
	return l
}

// HasApprovedPaymentForUser есть ли у пользователя хотя бы один одобренный платеж.
func (l *LedgerService) HasApprovedPaymentForUser(ctx context.Context, email string) (bool, error) {
	ok, err := l.paymentRepo.HasApprovedForUser(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("checking approved payments: %w", err)
	}
	return ok, nil
}

// AppendApproved добавляет платеж в реестр в отдельной транзакции.
// Возвращает domain.ErrDuplicateTransaction, если платеж с таким ключом уже есть.
func (l *LedgerService) AppendApproved(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	var created *domain.Payment
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var err error
		created, err = appendApprovedTx(c, tx, payment)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return created, nil
}

// appendApprovedTx добавляет платеж внутри транзакции tx.
//
// Алгоритм работы:
//  1. Берет транзакционную блокировку на идентифицирующий ключ (номер транзакции и, для шлюза, сессию).
//  2. Под блокировкой повторно проверяет уникальность ключей.
//  3. Создает запись. Нарушение уникального индекса в хранилище тоже считается дубликатом.
func appendApprovedTx(ctx context.Context, tx uow.TX, payment domain.Payment) (*domain.Payment, error) {
	paymentRepo, err := txPaymentRepo(tx)
	if err != nil {
		return nil, err
	}
	locker, err := txLocker(tx)
	if err != nil {
		return nil, err
	}

	if lockErr := locker.Lock(ctx, repoargs.LockTransactionID, payment.TransactionID); lockErr != nil {
		return nil, fmt.Errorf("appending payment: %w", lockErr)
	}
	if sessionID := payment.GatewaySessionIDValue(); sessionID != "" {
		if lockErr := locker.Lock(ctx, repoargs.LockGatewaySessionID, sessionID); lockErr != nil {
			return nil, fmt.Errorf("appending payment: %w", lockErr)
		}
		exists, existsErr := paymentRepo.ExistsByGatewaySessionID(ctx, sessionID)
		if existsErr != nil {
			return nil, fmt.Errorf("appending payment: %w", existsErr)
		}
		if exists {
			return nil, fmt.Errorf("%w: gateway session %s already recorded", domain.ErrDuplicateTransaction, sessionID)
		}
	}

	exists, existsErr := paymentRepo.ExistsByTransactionID(ctx, payment.TransactionID)
	if existsErr != nil {
		return nil, fmt.Errorf("appending payment: %w", existsErr)
	}
	if exists {
		return nil, fmt.Errorf("%w: transaction %s already in payments", domain.ErrDuplicateTransaction,
			payment.TransactionID)
	}

	payment.UserEmail = domain.NormalizeEmail(payment.UserEmail)
	payment.Status = domain.PaymentStatusApproved
	if payment.Books == nil {
		payment.Books = []string{}
	}

	created, createErr := paymentRepo.Create(ctx, payment)
	if createErr != nil {
		if errors.Is(createErr, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateTransaction, createErr.Error())
		}
		return nil, fmt.Errorf("appending payment: %w", createErr)
	}
	return created, nil
}

// FindByTransactionID возвращает платеж или nil, если его нет.
func (l *LedgerService) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	payment, err := l.paymentRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil //nolint:nilnil
		}
		return nil, fmt.Errorf("finding payment: %w", err)
	}
	return payment, nil
}

type PaymentStatus struct {
	Found         bool
	Status        domain.PaymentStatusType
	Plan          string
	ExpiresAt     time.Time
	IsExpired     bool
	DaysRemaining int
}

// PaymentStatus статус платежа по номеру транзакции. Истечение считается на момент чтения.
func (l *LedgerService) PaymentStatus(ctx context.Context, transactionID string) (*PaymentStatus, error) {
	payment, err := l.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return &PaymentStatus{Found: false}, nil
	}
	now := l.now()
	return &PaymentStatus{
		Found:         true,
		Status:        payment.Status,
		Plan:          payment.Plan,
		ExpiresAt:     payment.ExpirationDate,
		IsExpired:     payment.IsExpiredAt(now),
		DaysRemaining: int(math.Ceil(payment.ExpirationDate.Sub(now).Hours() / 24)), //nolint:mnd
	}, nil
}

// ActiveSubscriptions одобренные и не истекшие платежи пользователя.
func (l *LedgerService) ActiveSubscriptions(ctx context.Context, email string) ([]domain.Payment, error) {
	payments, err := l.paymentRepo.GetActiveByUserEmail(ctx, domain.NormalizeEmail(email), l.now())
	if err != nil {
		return nil, fmt.Errorf("getting active subscriptions: %w", err)
	}
	return payments, nil
}

// LockBook закрепляет книгу book за активной подпиской monthly_specific, у которой книга еще не выбрана.
func (l *LedgerService) LockBook(ctx context.Context, email, book string) (*domain.Payment, error) {
	book = strings.TrimSpace(book)
	if book == "" {
		return nil, fmt.Errorf("%w: book is required", domain.ErrValidation)
	}
	email = domain.NormalizeEmail(email)

	var locked *domain.Payment
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		paymentRepo, err := txPaymentRepo(tx)
		if err != nil {
			return err
		}
		locker, err := txLocker(tx)
		if err != nil {
			return err
		}
		active, err := paymentRepo.GetActiveByUserEmail(c, email, l.now())
		if err != nil {
			return fmt.Errorf("locking book: %w", err)
		}

		for _, candidate := range active {
			if candidate.Plan != "monthly_specific" || len(candidate.Books) > 0 {
				continue
			}
			if lockErr := locker.Lock(c, repoargs.LockTransactionID, candidate.TransactionID); lockErr != nil {
				return fmt.Errorf("locking book: %w", lockErr)
			}
			// перечитываем под блокировкой: книга могла быть выбрана параллельным запросом.
			fresh, findErr := paymentRepo.FindByTransactionID(c, candidate.TransactionID)
			if findErr != nil {
				return fmt.Errorf("locking book: %w", findErr)
			}
			if len(fresh.Books) > 0 {
				continue
			}
			fresh.Books = []string{book}
			locked, err = paymentRepo.Update(c, *fresh)
			if err != nil {
				return fmt.Errorf("locking book: %w", err)
			}
			return nil
		}
		return fmt.Errorf("%w: no eligible monthly specific subscription found or book already locked",
			domain.ErrInvalidState)
	})
	if txErr != nil {
		return nil, txErr
	}
	return locked, nil
}
