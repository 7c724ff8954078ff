package pgrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

const (
	paymentInsertQuery = `INSERT INTO payments
    (transaction_id, gateway_session_id, user_email, status, expiration_date, created_at, doc)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING doc`

	paymentUpdateQuery = `UPDATE payments
SET user_email = $2, status = $3, expiration_date = $4, doc = $5
WHERE transaction_id = $1
RETURNING doc`

	paymentFindQuery = `SELECT doc FROM payments WHERE transaction_id = $1`

	paymentExistsByTransactionQuery = `SELECT EXISTS(SELECT 1 FROM payments WHERE transaction_id = $1)`
	paymentExistsBySessionQuery     = `SELECT EXISTS(SELECT 1 FROM payments WHERE gateway_session_id = $1)`
	paymentHasApprovedQuery         = `SELECT EXISTS(SELECT 1 FROM payments WHERE user_email = $1 AND status = $2)`

	paymentActiveQuery = `SELECT doc FROM payments
WHERE user_email = $1 AND status = $2 AND expiration_date >= $3
ORDER BY created_at`
)

type PaymentRepository struct {
	conn uow.DBTX
}

func NewPaymentRepository(conn uow.DBTX) *PaymentRepository {
	return &PaymentRepository{conn: conn}
}

func (p *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	doc, err := json.Marshal(payment)
	if err != nil {
		return nil, convertErr(err, "encoding payment `%s`", payment.TransactionID)
	}
	created, err := scanDoc[domain.Payment](p.conn.QueryRow(ctx, paymentInsertQuery,
		payment.TransactionID,
		payment.GatewaySessionID,
		payment.UserEmail,
		payment.Status,
		payment.ExpirationDate,
		payment.Timestamp,
		doc,
	))
	if err != nil {
		return nil, convertErr(err, "creating payment `%s`", payment.TransactionID)
	}
	return created, nil
}

func (p *PaymentRepository) Update(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	doc, err := json.Marshal(payment)
	if err != nil {
		return nil, convertErr(err, "encoding payment `%s`", payment.TransactionID)
	}
	updated, err := scanDoc[domain.Payment](p.conn.QueryRow(ctx, paymentUpdateQuery,
		payment.TransactionID,
		payment.UserEmail,
		payment.Status,
		payment.ExpirationDate,
		doc,
	))
	if err != nil {
		return nil, convertErr(err, "updating payment `%s`", payment.TransactionID)
	}
	return updated, nil
}

func (p *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	payment, err := scanDoc[domain.Payment](p.conn.QueryRow(ctx, paymentFindQuery, transactionID))
	if err != nil {
		return nil, convertErr(err, "finding payment `%s`", transactionID)
	}
	return payment, nil
}

func (p *PaymentRepository) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	return p.exists(ctx, paymentExistsByTransactionQuery, transactionID)
}

func (p *PaymentRepository) ExistsByGatewaySessionID(ctx context.Context, sessionID string) (bool, error) {
	return p.exists(ctx, paymentExistsBySessionQuery, sessionID)
}

func (p *PaymentRepository) HasApprovedForUser(ctx context.Context, email string) (bool, error) {
	return p.exists(ctx, paymentHasApprovedQuery, email, domain.PaymentStatusApproved)
}

// GetActiveByUserEmail одобренные платежи пользователя, срок которых не истек к моменту now.
func (p *PaymentRepository) GetActiveByUserEmail(
	ctx context.Context,
	email string,
	now time.Time,
) ([]domain.Payment, error) {
	rows, err := p.conn.Query(ctx, paymentActiveQuery, email, domain.PaymentStatusApproved, now)
	if err != nil {
		return nil, convertErr(err, "getting active payments of `%s`", email)
	}
	payments, err := collectDocs[domain.Payment](rows)
	if err != nil {
		return nil, convertErr(err, "getting active payments of `%s`", email)
	}
	return payments, nil
}

func (p *PaymentRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := p.conn.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, convertErr(err, "checking payment existence")
	}
	return exists, nil
}
