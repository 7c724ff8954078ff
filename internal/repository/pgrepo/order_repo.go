package pgrepo

import (
	"context"
	"encoding/json"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

const (
	orderInsertQuery = `INSERT INTO payment_orders (order_id, user_email, status, transaction_id, created_at, submitted_at, doc)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING doc`

	orderUpdateQuery = `UPDATE payment_orders
SET user_email = $2, status = $3, transaction_id = $4, submitted_at = $5, doc = $6, updated_at = NOW()
WHERE order_id = $1
RETURNING doc`

	orderFindQuery          = `SELECT doc FROM payment_orders WHERE order_id = $1`
	orderFindForUpdateQuery = orderFindQuery + ` FOR UPDATE`

	orderTransactionTakenQuery = `SELECT EXISTS(
    SELECT 1 FROM payment_orders WHERE transaction_id = $1 AND order_id <> $2
)`

	orderByStatusQuery = `SELECT doc FROM payment_orders WHERE status = $1
ORDER BY COALESCE(submitted_at, created_at) DESC`
)

type OrderRepository struct {
	conn uow.DBTX
}

func NewOrderRepository(conn uow.DBTX) *OrderRepository {
	return &OrderRepository{conn: conn}
}

func (o *OrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	doc, err := json.Marshal(order)
	if err != nil {
		return nil, convertErr(err, "encoding order `%s`", order.OrderID)
	}
	created, err := scanDoc[domain.Order](o.conn.QueryRow(ctx, orderInsertQuery,
		order.OrderID,
		order.UserEmail,
		order.Status,
		order.TransactionID,
		order.CreatedAt,
		order.SubmittedAt,
		doc,
	))
	if err != nil {
		return nil, convertErr(err, "creating order `%s`", order.OrderID)
	}
	return created, nil
}

func (o *OrderRepository) Update(ctx context.Context, order domain.Order) (*domain.Order, error) {
	doc, err := json.Marshal(order)
	if err != nil {
		return nil, convertErr(err, "encoding order `%s`", order.OrderID)
	}
	updated, err := scanDoc[domain.Order](o.conn.QueryRow(ctx, orderUpdateQuery,
		order.OrderID,
		order.UserEmail,
		order.Status,
		order.TransactionID,
		order.SubmittedAt,
		doc,
	))
	if err != nil {
		return nil, convertErr(err, "updating order `%s`", order.OrderID)
	}
	return updated, nil
}

func (o *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanDoc[domain.Order](o.conn.QueryRow(ctx, orderFindQuery, orderID))
	if err != nil {
		return nil, convertErr(err, "finding order `%s`", orderID)
	}
	return order, nil
}

// FindByOrderIDForUpdate блокирует строку заказа до конца транзакции.
func (o *OrderRepository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanDoc[domain.Order](o.conn.QueryRow(ctx, orderFindForUpdateQuery, orderID))
	if err != nil {
		return nil, convertErr(err, "finding order `%s` for update", orderID)
	}
	return order, nil
}

func (o *OrderRepository) TransactionIDTaken(ctx context.Context, transactionID, exceptOrderID string) (bool, error) {
	var taken bool
	if err := o.conn.QueryRow(ctx, orderTransactionTakenQuery, transactionID, exceptOrderID).Scan(&taken); err != nil {
		return false, convertErr(err, "checking transaction `%s` in orders", transactionID)
	}
	return taken, nil
}

// GetByStatus Возвращает заказы в статусе args.Status, свежие первыми. Нулевой Limit - без ограничения.
func (o *OrderRepository) GetByStatus(ctx context.Context, args repoargs.OrdersByStatus) ([]domain.Order, error) {
	query := orderByStatusQuery
	queryArgs := []any{args.Status}
	if args.Limit > 0 {
		limit, limitErr := safeConvertUintToInt32(args.Limit)
		if limitErr != nil {
			return nil, convertErr(limitErr, "converting limit to int32")
		}
		query += ` LIMIT $2`
		queryArgs = append(queryArgs, limit)
	}

	rows, err := o.conn.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, convertErr(err, "getting orders by status `%s`", args.Status)
	}
	orders, err := collectDocs[domain.Order](rows)
	if err != nil {
		return nil, convertErr(err, "getting orders by status `%s`", args.Status)
	}
	return orders, nil
}
