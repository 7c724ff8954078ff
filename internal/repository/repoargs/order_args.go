package repoargs

import "github.com/fsdevblog/paperify-pay/internal/domain"

// OrdersByStatus выборка заказов по статусу. Limit = 0 означает без ограничения.
type OrdersByStatus struct {
	Status domain.OrderStatusType
	Limit  uint
}
