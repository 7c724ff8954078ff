package service

import (
	"fmt"

	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	OrderService    *OrderService
	LedgerService   *LedgerService
	ReferralService *ReferralService
	GatewayService  *GatewayService
}

type FactoryArgs struct {
	UOW        uow.UOW
	Authorizer Authorizer
	Orders     OrderConfig
	Referrals  ReferralConfig
	Checkout   CheckoutClient
	Webhooks   WebhookParser
	Metrics    Metrics
	Logger     *logrus.Logger
}

func Factory(args FactoryArgs) (*AppServices, error) {
	metrics := args.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	ledgerService, ledgerErr := NewLedgerService(args.UOW)
	if ledgerErr != nil {
		return nil, fmt.Errorf("service factory: %s", ledgerErr.Error())
	}

	referralService, referralErr := NewReferralService(args.UOW, args.Referrals, args.Logger)
	if referralErr != nil {
		return nil, fmt.Errorf("service factory: %s", referralErr.Error())
	}
	referralService.SetMetrics(metrics)

	orderService, orderErr := NewOrderService(args.UOW, referralService, args.Authorizer, args.Orders, args.Logger)
	if orderErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderErr.Error())
	}
	orderService.SetMetrics(metrics)

	gatewayService, gatewayErr := NewGatewayService(args.UOW, referralService, args.Checkout, args.Webhooks, args.Logger)
	if gatewayErr != nil {
		return nil, fmt.Errorf("service factory: %s", gatewayErr.Error())
	}
	gatewayService.SetMetrics(metrics)

	return &AppServices{
		OrderService:    orderService,
		LedgerService:   ledgerService,
		ReferralService: referralService,
		GatewayService:  gatewayService,
	}, nil
}
