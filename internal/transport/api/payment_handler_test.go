package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/fsdevblog/paperify-pay/internal/transport/api/testutils"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PaymentHandlerTestSuite struct {
	handlerSuite
}

func TestPaymentHandlerSuite(t *testing.T) {
	suite.Run(t, new(PaymentHandlerTestSuite))
}

func (s *PaymentHandlerTestSuite) createdOrder(email string, books []string) *domain.Order {
	return &domain.Order{
		OrderID:       "ORD-1700000000000-ABCDEF",
		UserEmail:     email,
		Plan:          "weekly_unlimited",
		FrontendPlan:  "weekly_unlimited",
		Amount:        decimal.NewFromInt(600),
		Books:         books,
		PaymentNumber: "03448007154",
		Status:        domain.OrderStatusCreated,
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(15 * time.Minute),
	}
}

func (s *PaymentHandlerTestSuite) TestCreateOrder() {
	cases := []struct {
		name       string
		body       string
		token      string
		mock       func()
		wantStatus int
		wantError  string
	}{
		{
			name: "anonymous_with_body_email",
			body: `{"plan":"weekly_unlimited","userEmail":"guest@example.com","books":["Physics"," "]}`,
			mock: func() {
				s.orders.EXPECT().CreateOrder(gomock.Any(), service.CreateOrderArgs{
					PlanKey:   "weekly_unlimited",
					UserEmail: "guest@example.com",
					Books:     []string{"Physics"},
				}).Return(s.createdOrder("guest@example.com", []string{"Physics"}), nil).Times(1)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "session_email_wins",
			body:  `{"plan":"weekly_unlimited","userEmail":"other@example.com","books":"[\"Math\"]"}`,
			token: s.userToken,
			mock: func() {
				s.orders.EXPECT().CreateOrder(gomock.Any(), service.CreateOrderArgs{
					PlanKey:   "weekly_unlimited",
					UserEmail: s.userEmail,
					Books:     []string{"Math"},
				}).Return(s.createdOrder(s.userEmail, []string{"Math"}), nil).Times(1)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "invalid_plan",
			body:  `{"plan":"yearly","books":[]}`,
			token: s.userToken,
			mock: func() {
				s.orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					Return(nil, domain.ErrInvalidPlan).Times(1)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid plan selected.",
		},
		{
			name: "missing_email",
			body: `{"plan":"weekly_unlimited"}`,
			mock: func() {
				s.orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: userEmail is required", domain.ErrValidation)).Times(1)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "validation error: userEmail is required",
		},
		{
			name:       "malformed_body",
			body:       `{"plan":`,
			mock:       func() {},
			wantStatus: http.StatusBadRequest,
			wantError:  "bad request",
		},
		{
			name:       "invalid_body_email",
			body:       `{"plan":"weekly_unlimited","userEmail":"not-an-email"}`,
			mock:       func() {},
			wantStatus: http.StatusBadRequest,
			wantError:  "bad request",
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			tc.mock()
			status, body := s.doJSON(http.MethodPost, CreateOrderRoute, tc.body, tc.token)
			s.Equal(tc.wantStatus, status)
			if tc.wantError != "" {
				s.Equal(false, body["success"])
				s.Equal(tc.wantError, body["error"])
				return
			}
			s.Equal(true, body["success"])
			order, ok := body["order"].(map[string]any)
			s.Require().True(ok)
			s.Equal("ORD-1700000000000-ABCDEF", order["orderId"])
			s.Equal("weekly_unlimited", order["plan"])
			s.InDelta(600, order["amount"], 0)
			s.Equal("03448007154", order["paymentNumber"])
			s.NotContains(order, "userEmail")
		})
	}
}

func (s *PaymentHandlerTestSuite) submit(fields map[string]string, files ...testutils.FilePart) (int, map[string]any) {
	body, contentType, err := testutils.MultipartForm(fields, files...)
	s.Require().NoError(err)
	return s.do(http.MethodPost, RouteGroup+SubmitOrderRoute, body, "",
		testutils.WithHeader("Content-Type", contentType))
}

func (s *PaymentHandlerTestSuite) TestSubmitOrder() {
	validFields := map[string]string{
		"orderId":       "ORD-1700000000000-ABCDEF",
		"transactionId": "1234567890",
		"senderNumber":  "03001234567",
	}
	png := testutils.FilePart{
		Field:       ScreenshotFormField,
		Filename:    "receipt.png",
		ContentType: "image/png",
		Content:     []byte("\x89PNG fake"),
	}

	s.Run("success", func() {
		s.screenshots.EXPECT().
			Save(gomock.Any(), "receipt.png", "image/png", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, r io.Reader) (string, error) {
				content, err := io.ReadAll(r)
				s.Require().NoError(err)
				s.Equal([]byte("\x89PNG fake"), content)
				return "uploads/payments/payment-1.png", nil
			}).Times(1)
		s.orders.EXPECT().SubmitOrder(gomock.Any(), service.SubmitOrderArgs{
			OrderID:       "ORD-1700000000000-ABCDEF",
			TransactionID: "1234567890",
			SenderNumber:  "03001234567",
			ScreenshotRef: "uploads/payments/payment-1.png",
		}).Return(&domain.Order{Status: domain.OrderStatusSubmitted}, nil).Times(1)

		status, body := s.submit(validFields, png)
		s.Equal(http.StatusOK, status)
		s.Equal(true, body["success"])
		s.Equal(SubmittedOrderMessage, body["message"])
		s.Equal("submitted", body["orderStatus"])
	})

	s.Run("missing_screenshot", func() {
		status, body := s.submit(validFields)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("validation error: screenshot is required", body["error"])
	})

	s.Run("invalid_transaction_id_is_rejected_before_saving", func() {
		fields := map[string]string{
			"orderId":       "ORD-1700000000000-ABCDEF",
			"transactionId": "12AB",
			"senderNumber":  "03001234567",
		}
		status, body := s.submit(fields, png)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("validation error: transaction ID must be numeric (10-20 digits)", body["error"])
	})

	s.Run("missing_order_id", func() {
		fields := map[string]string{
			"transactionId": "1234567890",
			"senderNumber":  "03001234567",
		}
		status, body := s.submit(fields, png)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("validation error: order ID is required", body["error"])
	})

	s.Run("not_an_image", func() {
		txt := testutils.FilePart{
			Field:       ScreenshotFormField,
			Filename:    "receipt.txt",
			ContentType: "text/plain",
			Content:     []byte("hello"),
		}
		status, body := s.submit(validFields, txt)
		s.Equal(http.StatusBadRequest, status)
		s.Equal(ErrScreenshotNotImage.Error(), body["error"])
	})

	s.Run("too_large", func() {
		big := testutils.FilePart{
			Field:       ScreenshotFormField,
			Filename:    "huge.png",
			ContentType: "image/png",
			Content:     bytes.Repeat([]byte{0xff}, MaxScreenshotBytes+1),
		}
		status, body := s.submit(validFields, big)
		s.Equal(http.StatusRequestEntityTooLarge, status)
		s.Equal(ErrScreenshotTooLarge.Error(), body["error"])
	})

	s.Run("expired_order", func() {
		s.screenshots.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("uploads/payments/payment-2.png", nil).Times(1)
		s.orders.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
			Return(nil, domain.ErrExpired).Times(1)
		s.screenshots.EXPECT().Delete(gomock.Any(), "uploads/payments/payment-2.png").Return(nil).Times(1)

		status, body := s.submit(validFields, png)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("Order expired. Please create a new order.", body["error"])
	})

	s.Run("duplicate_transaction", func() {
		s.screenshots.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("uploads/payments/payment-3.png", nil).Times(1)
		s.orders.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("submit order: %w", domain.ErrDuplicateTransaction)).Times(1)
		s.screenshots.EXPECT().Delete(gomock.Any(), "uploads/payments/payment-3.png").Return(nil).Times(1)

		status, body := s.submit(validFields, png)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("Transaction ID already used.", body["error"])
	})

	s.Run("cleanup_failure_keeps_client_error", func() {
		s.screenshots.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("uploads/payments/payment-4.png", nil).Times(1)
		s.orders.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
			Return(nil, domain.ErrRecordNotFound).Times(1)
		s.screenshots.EXPECT().Delete(gomock.Any(), "uploads/payments/payment-4.png").
			Return(errors.New("bucket unavailable")).Times(1)

		status, body := s.submit(validFields, png)
		s.Equal(http.StatusNotFound, status)
		s.Equal("Order not found.", body["error"])
	})

	s.Run("internal_failure_keeps_screenshot", func() {
		s.screenshots.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("uploads/payments/payment-5.png", nil).Times(1)
		s.orders.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("commit transaction: conn closed")).Times(1)
		s.screenshots.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

		status, body := s.submit(validFields, png)
		s.Equal(http.StatusInternalServerError, status)
		s.Equal("internal server error", body["error"])
	})

	s.Run("part_without_filename_is_not_a_file", func() {
		unnamed := png
		unnamed.Filename = ""
		status, body := s.submit(validFields, unnamed)
		s.Equal(http.StatusBadRequest, status)
		s.Equal("validation error: screenshot is required", body["error"])
	})

	s.Run("storage_failure_is_private", func() {
		s.screenshots.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", fmt.Errorf("disk full")).Times(1)

		status, body := s.submit(validFields, png)
		s.Equal(http.StatusInternalServerError, status)
		s.Equal("internal server error", body["error"])
	})
}

func (s *PaymentHandlerTestSuite) TestGetOrder() {
	route := strings.Replace(OrderRoute, ":orderId", "ORD-1", 1)

	s.Run("unauthorized", func() {
		status, _ := s.doJSON(http.MethodGet, route, "", "")
		s.Equal(http.StatusUnauthorized, status)
	})

	s.Run("owner", func() {
		s.orders.EXPECT().GetOrder(gomock.Any(), "ORD-1", s.userEmail).
			Return(s.createdOrder(s.userEmail, []string{}), nil).Times(1)

		status, body := s.doJSON(http.MethodGet, route, "", s.userToken)
		s.Equal(http.StatusOK, status)
		order, ok := body["order"].(map[string]any)
		s.Require().True(ok)
		s.Equal("created", order["status"])
	})

	s.Run("forbidden", func() {
		s.orders.EXPECT().GetOrder(gomock.Any(), "ORD-1", s.userEmail).
			Return(nil, domain.ErrForbidden).Times(1)

		status, body := s.doJSON(http.MethodGet, route, "", s.userToken)
		s.Equal(http.StatusForbidden, status)
		s.Equal("Forbidden.", body["error"])
	})

	s.Run("not_found", func() {
		s.orders.EXPECT().GetOrder(gomock.Any(), "ORD-1", s.userEmail).
			Return(nil, fmt.Errorf("find order: %w", domain.ErrRecordNotFound)).Times(1)

		status, body := s.doJSON(http.MethodGet, route, "", s.userToken)
		s.Equal(http.StatusNotFound, status)
		s.Equal("Order not found.", body["error"])
	})
}

func (s *PaymentHandlerTestSuite) TestPaymentStatus() {
	route := strings.Replace(PaymentStatusRoute, ":transactionId", "1234567890", 1)

	s.Run("found", func() {
		s.ledger.EXPECT().PaymentStatus(gomock.Any(), "1234567890").Return(&service.PaymentStatus{
			Found:         true,
			Status:        domain.PaymentStatusApproved,
			Plan:          "monthly_specific",
			ExpiresAt:     time.Now().Add(30 * 24 * time.Hour),
			DaysRemaining: 30,
		}, nil).Times(1)

		status, body := s.doJSON(http.MethodGet, route, "", "")
		s.Equal(http.StatusOK, status)
		s.Equal("approved", body["status"])
		s.Equal("monthly_specific", body["plan"])
		s.Equal(false, body["isExpired"])
		s.InDelta(30, body["daysRemaining"], 0)
	})

	s.Run("not_found", func() {
		s.ledger.EXPECT().PaymentStatus(gomock.Any(), "1234567890").
			Return(&service.PaymentStatus{Found: false}, nil).Times(1)

		status, body := s.doJSON(http.MethodGet, route, "", "")
		s.Equal(http.StatusOK, status)
		s.Equal(map[string]any{"status": "not-found"}, body)
	})
}
