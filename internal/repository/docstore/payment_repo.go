package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
)

type PaymentRepository struct {
	sess *Session
}

func NewPaymentRepository(sess *Session) *PaymentRepository {
	return &PaymentRepository{sess: sess}
}

// Create добавляет платеж. Совпадение номера транзакции или сессии шлюза - domain.ErrDuplicateKey.
func (p *PaymentRepository) Create(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	var created domain.Payment
	err := p.sess.write(paymentsKind, func(st *state) error {
		sessionID := payment.GatewaySessionIDValue()
		for _, existing := range st.payments {
			if existing.TransactionID == payment.TransactionID {
				return fmt.Errorf("[docstore/creating payment `%s`] %w", payment.TransactionID, domain.ErrDuplicateKey)
			}
			if sessionID != "" && existing.GatewaySessionIDValue() == sessionID {
				return fmt.Errorf("[docstore/creating payment `%s`] %w: gateway session", payment.TransactionID,
					domain.ErrDuplicateKey)
			}
		}
		created = clonePayment(payment)
		st.payments = append(st.payments, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (p *PaymentRepository) Update(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	var updated domain.Payment
	err := p.sess.write(paymentsKind, func(st *state) error {
		for i, existing := range st.payments {
			if existing.TransactionID == payment.TransactionID {
				updated = clonePayment(payment)
				st.payments[i] = updated
				return nil
			}
		}
		return fmt.Errorf("[docstore/updating payment `%s`] %w", payment.TransactionID, domain.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (p *PaymentRepository) FindByTransactionID(_ context.Context, transactionID string) (*domain.Payment, error) {
	var found *domain.Payment
	err := p.sess.read(func(st *state) error {
		for _, existing := range st.payments {
			if existing.TransactionID == transactionID {
				c := clonePayment(existing)
				found = &c
				return nil
			}
		}
		return fmt.Errorf("[docstore/finding payment `%s`] %w", transactionID, domain.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (p *PaymentRepository) ExistsByTransactionID(_ context.Context, transactionID string) (bool, error) {
	return p.any(func(existing domain.Payment) bool {
		return existing.TransactionID == transactionID
	})
}

func (p *PaymentRepository) ExistsByGatewaySessionID(_ context.Context, sessionID string) (bool, error) {
	return p.any(func(existing domain.Payment) bool {
		return existing.GatewaySessionIDValue() == sessionID
	})
}

func (p *PaymentRepository) HasApprovedForUser(_ context.Context, email string) (bool, error) {
	return p.any(func(existing domain.Payment) bool {
		return existing.Status == domain.PaymentStatusApproved && domain.NormalizeEmail(existing.UserEmail) == email
	})
}

func (p *PaymentRepository) GetActiveByUserEmail(
	_ context.Context,
	email string,
	now time.Time,
) ([]domain.Payment, error) {
	payments := make([]domain.Payment, 0)
	err := p.sess.read(func(st *state) error {
		for _, existing := range st.payments {
			if existing.Status != domain.PaymentStatusApproved ||
				domain.NormalizeEmail(existing.UserEmail) != email ||
				existing.IsExpiredAt(now) {
				continue
			}
			payments = append(payments, clonePayment(existing))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (p *PaymentRepository) any(match func(domain.Payment) bool) (bool, error) {
	var found bool
	err := p.sess.read(func(st *state) error {
		for _, existing := range st.payments {
			if match(existing) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
