package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/shopspring/decimal"
)

const racers = 16

// race запускает fn в n горутинах одновременно и возвращает ошибки по номеру горутины.
func race(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func countNil(errs []error) int {
	n := 0
	for _, err := range errs {
		if err == nil {
			n++
		}
	}
	return n
}

func (s *ScenarioTestSuite) TestConcurrentApproveSameOrder() {
	referrer, err := s.services.ReferralService.EnsureProfile(context.TODO(), "referrer@example.com")
	s.Require().NoError(err)
	_, err = s.services.ReferralService.ApplyReferralCode(context.TODO(), "buyer@example.com", referrer.ReferralCode)
	s.Require().NoError(err)

	order := s.createOrder("monthly_unlimited", "buyer@example.com")
	_, err = s.submit(order.OrderID, "1234567890")
	s.Require().NoError(err)

	results := make([]*ReviewResult, racers)
	errs := race(racers, func(i int) error {
		res, reviewErr := s.services.OrderService.ReviewOrder(context.TODO(), ReviewOrderArgs{
			OrderID:  order.OrderID,
			Action:   domain.ReviewActionApprove,
			Reviewer: scenarioAdmin,
		})
		results[i] = res
		return reviewErr
	})

	s.Equal(1, countNil(errs), "exactly one approval wins")
	credited := 0
	for i, err := range errs {
		if err == nil {
			s.Require().NotNil(results[i].Payment)
			if results[i].Reward != nil && results[i].Reward.Credited {
				credited++
			}
			continue
		}
		s.True(errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrDuplicateTransaction), err.Error())
	}
	s.Equal(1, credited)

	active, err := s.services.LedgerService.ActiveSubscriptions(context.TODO(), "buyer@example.com")
	s.Require().NoError(err)
	s.Len(active, 1)

	status, err := s.services.ReferralService.GetStatus(context.TODO(), "referrer@example.com")
	s.Require().NoError(err)
	s.Equal(1, status.PaidReferrals)
}

func (s *ScenarioTestSuite) TestConcurrentSubmitSameTransactionID() {
	orders := make([]*domain.Order, racers)
	for i := range racers {
		orders[i] = s.createOrder("weekly_unlimited", fmt.Sprintf("buyer%d@example.com", i))
	}

	errs := race(racers, func(i int) error {
		_, submitErr := s.submit(orders[i].OrderID, "9876543210")
		return submitErr
	})

	s.Equal(1, countNil(errs), "transaction id is accepted once")
	for _, err := range errs {
		if err != nil {
			s.ErrorIs(err, domain.ErrDuplicateTransaction)
		}
	}

	pending, err := s.services.OrderService.PendingOrders(context.TODO(), scenarioAdmin)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Require().NotNil(pending[0].TransactionID)
	s.Equal("9876543210", *pending[0].TransactionID)
}

func (s *ScenarioTestSuite) TestConcurrentCheckoutSameSession() {
	referrer, err := s.services.ReferralService.EnsureProfile(context.TODO(), "referrer@example.com")
	s.Require().NoError(err)
	_, err = s.services.ReferralService.ApplyReferralCode(context.TODO(), "buyer@example.com", referrer.ReferralCode)
	s.Require().NoError(err)

	results := make([]*WebhookResult, racers)
	errs := race(racers, func(i int) error {
		res, checkoutErr := s.services.GatewayService.RecordCheckout(context.TODO(), domain.CheckoutCompleted{
			SessionID:       "sess_123",
			PaymentIntentID: "pi_sess_123",
			UserEmail:       "buyer@example.com",
			Plan:            "monthly_unlimited",
			FrontendPlan:    "monthly_unlimited",
			Books:           []string{},
			Amount:          decimal.NewFromInt(1300),
		})
		results[i] = res
		return checkoutErr
	})

	recorded := 0
	for i, err := range errs {
		s.Require().NoError(err)
		switch results[i].Outcome {
		case WebhookResultRecorded:
			recorded++
		default:
			s.Equal(WebhookResultDuplicate, results[i].Outcome)
		}
	}
	s.Equal(1, recorded, "session is recorded once")

	active, err := s.services.LedgerService.ActiveSubscriptions(context.TODO(), "buyer@example.com")
	s.Require().NoError(err)
	s.Len(active, 1)

	status, err := s.services.ReferralService.GetStatus(context.TODO(), "referrer@example.com")
	s.Require().NoError(err)
	s.Equal(1, status.PaidReferrals)
}
