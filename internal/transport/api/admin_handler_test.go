package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/fsdevblog/paperify-pay/internal/transport/api/testutils"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type AdminHandlerTestSuite struct {
	handlerSuite
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerTestSuite))
}

func (s *AdminHandlerTestSuite) TestReview() {
	s.Run("approve", func() {
		s.orders.EXPECT().ReviewOrder(gomock.Any(), service.ReviewOrderArgs{
			OrderID:  "ORD-1",
			Action:   domain.ReviewActionApprove,
			Note:     "ok",
			Reviewer: "admin@example.com",
		}).Return(&service.ReviewResult{
			Order: &domain.Order{OrderID: "ORD-1", Status: domain.OrderStatusApproved},
			Payment: &domain.Payment{
				Status:         domain.PaymentStatusApproved,
				ExpirationDate: time.Date(2025, 2, 9, 10, 0, 0, 0, time.UTC),
			},
		}, nil).Times(1)

		status, body := s.doJSON(http.MethodPost, ReviewRoute,
			`{"orderId":"ORD-1","action":"approve","note":"ok"}`, s.adminToken)
		s.Equal(http.StatusOK, status)
		s.Equal(true, body["success"])
		s.Equal("Order approved. Access active until 2025-02-09.", body["message"])
		order, ok := body["order"].(map[string]any)
		s.Require().True(ok)
		s.Equal("approved", order["status"])
	})

	s.Run("reject", func() {
		s.orders.EXPECT().ReviewOrder(gomock.Any(), gomock.Any()).Return(&service.ReviewResult{
			Order: &domain.Order{OrderID: "ORD-1", Status: domain.OrderStatusRejected},
		}, nil).Times(1)

		status, body := s.doJSON(http.MethodPost, ReviewRoute,
			`{"orderId":"ORD-1","action":"reject"}`, s.adminToken)
		s.Equal(http.StatusOK, status)
		s.Equal(RejectedOrderMessage, body["message"])
	})

	s.Run("forbidden", func() {
		s.orders.EXPECT().ReviewOrder(gomock.Any(), gomock.Any()).Times(0)

		status, body := s.doJSON(http.MethodPost, ReviewRoute,
			`{"orderId":"ORD-1","action":"approve"}`, s.userToken)
		s.Equal(http.StatusForbidden, status)
		s.Equal("Forbidden.", body["error"])
	})

	s.Run("forbidden_before_body", func() {
		s.orders.EXPECT().ReviewOrder(gomock.Any(), gomock.Any()).Times(0)

		status, body := s.doJSON(http.MethodPost, ReviewRoute, `{"orderId":`, s.userToken)
		s.Equal(http.StatusForbidden, status)
		s.Equal("Forbidden.", body["error"])
	})

	s.Run("service_forbidden", func() {
		s.orders.EXPECT().ReviewOrder(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("review order: %w", domain.ErrForbidden)).Times(1)

		status, body := s.doJSON(http.MethodPost, ReviewRoute,
			`{"orderId":"ORD-1","action":"approve"}`, s.adminToken)
		s.Equal(http.StatusForbidden, status)
		s.Equal("Forbidden.", body["error"])
	})

	s.Run("not_submitted", func() {
		s.orders.EXPECT().ReviewOrder(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: order is approved", domain.ErrInvalidState)).Times(1)

		status, body := s.doJSON(http.MethodPost, ReviewRoute,
			`{"orderId":"ORD-1","action":"approve"}`, s.adminToken)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("invalid order state: order is approved", body["error"])
	})

	s.Run("unauthorized", func() {
		status, _ := s.doJSON(http.MethodPost, ReviewRoute, `{"orderId":"ORD-1","action":"approve"}`, "")
		s.Equal(http.StatusUnauthorized, status)
	})

	s.Run("note_too_long", func() {
		// 300 рун, но 1200 байт.
		note := testutils.GenerateOverBytesUnderRunes(300)
		status, body := s.doJSON(http.MethodPost, ReviewRoute,
			fmt.Sprintf(`{"orderId":"ORD-1","action":"reject","note":%q}`, note), s.adminToken)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("bad request", body["error"])
	})

	s.Run("unknown_action", func() {
		status, body := s.doJSON(http.MethodPost, ReviewRoute, `{"orderId":"ORD-1","action":"archive"}`, s.adminToken)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("bad request", body["error"])
	})

	s.Run("missing_order_id", func() {
		status, _ := s.doJSON(http.MethodPost, ReviewRoute, `{"action":"approve"}`, s.adminToken)
		s.Equal(http.StatusBadRequest, status)
	})
}

func (s *AdminHandlerTestSuite) TestPending() {
	s.Run("reviewer", func() {
		s.orders.EXPECT().PendingOrders(gomock.Any(), "admin@example.com").Return([]domain.Order{
			{OrderID: "ORD-2", Status: domain.OrderStatusSubmitted},
			{OrderID: "ORD-1", Status: domain.OrderStatusSubmitted},
		}, nil).Times(1)

		status, body := s.doJSON(http.MethodGet, PendingRoute, "", s.adminToken)
		s.Equal(http.StatusOK, status)
		pending, ok := body["pending"].([]any)
		s.Require().True(ok)
		s.Len(pending, 2)
		first, ok := pending[0].(map[string]any)
		s.Require().True(ok)
		s.Equal("ORD-2", first["orderId"])
	})

	s.Run("forbidden", func() {
		s.orders.EXPECT().PendingOrders(gomock.Any(), gomock.Any()).Times(0)

		status, body := s.doJSON(http.MethodGet, PendingRoute, "", s.userToken)
		s.Equal(http.StatusForbidden, status)
		s.Equal("Forbidden.", body["error"])
	})
}
