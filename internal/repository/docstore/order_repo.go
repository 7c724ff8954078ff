package docstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
)

type OrderRepository struct {
	sess *Session
}

func NewOrderRepository(sess *Session) *OrderRepository {
	return &OrderRepository{sess: sess}
}

func (o *OrderRepository) Create(_ context.Context, order domain.Order) (*domain.Order, error) {
	var created domain.Order
	err := o.sess.write(ordersKind, func(st *state) error {
		for _, existing := range st.orders {
			if existing.OrderID == order.OrderID {
				return fmt.Errorf("[docstore/creating order `%s`] %w", order.OrderID, domain.ErrDuplicateKey)
			}
			if transactionClash(existing, order) {
				return fmt.Errorf("[docstore/creating order `%s`] %w: transaction id", order.OrderID,
					domain.ErrDuplicateKey)
			}
		}
		created = cloneOrder(order)
		st.orders = append(st.orders, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (o *OrderRepository) Update(_ context.Context, order domain.Order) (*domain.Order, error) {
	var updated domain.Order
	err := o.sess.write(ordersKind, func(st *state) error {
		idx := -1
		for i, existing := range st.orders {
			if existing.OrderID == order.OrderID {
				idx = i
				continue
			}
			if transactionClash(existing, order) {
				return fmt.Errorf("[docstore/updating order `%s`] %w: transaction id", order.OrderID,
					domain.ErrDuplicateKey)
			}
		}
		if idx < 0 {
			return fmt.Errorf("[docstore/updating order `%s`] %w", order.OrderID, domain.ErrRecordNotFound)
		}
		updated = cloneOrder(order)
		st.orders[idx] = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (o *OrderRepository) FindByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	var found *domain.Order
	err := o.sess.read(func(st *state) error {
		for _, existing := range st.orders {
			if existing.OrderID == orderID {
				c := cloneOrder(existing)
				found = &c
				return nil
			}
		}
		return fmt.Errorf("[docstore/finding order `%s`] %w", orderID, domain.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindByOrderIDForUpdate внутри транзакции запись и так защищена мьютексом хранилища.
func (o *OrderRepository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return o.FindByOrderID(ctx, orderID)
}

func (o *OrderRepository) TransactionIDTaken(_ context.Context, transactionID, exceptOrderID string) (bool, error) {
	var taken bool
	err := o.sess.read(func(st *state) error {
		for _, existing := range st.orders {
			if existing.OrderID != exceptOrderID && existing.TransactionIDValue() == transactionID {
				taken = true
				return nil
			}
		}
		return nil
	})
	return taken, err
}

func (o *OrderRepository) GetByStatus(_ context.Context, args repoargs.OrdersByStatus) ([]domain.Order, error) {
	orders := make([]domain.Order, 0)
	err := o.sess.read(func(st *state) error {
		for _, existing := range st.orders {
			if existing.Status == args.Status {
				orders = append(orders, cloneOrder(existing))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orderSortKey(orders[i]).After(orderSortKey(orders[j]))
	})
	if args.Limit > 0 && uint(len(orders)) > args.Limit {
		orders = orders[:args.Limit]
	}
	return orders, nil
}

func transactionClash(existing, order domain.Order) bool {
	txID := order.TransactionIDValue()
	return txID != "" && existing.TransactionIDValue() == txID
}

func orderSortKey(order domain.Order) time.Time {
	if order.SubmittedAt != nil {
		return *order.SubmittedAt
	}
	return order.CreatedAt
}
