package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// defaultPlanDuration используется для расчета срока подписки, если план не найден в каталоге.
const defaultPlanDuration = 30

type Plan struct {
	Key          string
	BackendPlan  string
	Name         string
	Amount       decimal.Decimal
	DurationDays int
}

var plans = map[string]Plan{
	"weekly_unlimited": {
		Key:          "weekly_unlimited",
		BackendPlan:  "weekly_unlimited",
		Name:         "Weekly Unlimited (14 Days)",
		Amount:       decimal.NewFromInt(600), //nolint:mnd
		DurationDays: 14,                      //nolint:mnd
	},
	"monthly_specific": {
		Key:          "monthly_specific",
		BackendPlan:  "monthly_specific",
		Name:         "Monthly Specific (30 Papers)",
		Amount:       decimal.NewFromInt(900), //nolint:mnd
		DurationDays: 30,                      //nolint:mnd
	},
	"monthly_unlimited": {
		Key:          "monthly_unlimited",
		BackendPlan:  "monthly_unlimited",
		Name:         "Monthly Unlimited (30 Days)",
		Amount:       decimal.NewFromInt(1300), //nolint:mnd
		DurationDays: 30,                       //nolint:mnd
	},
}

// LookupPlan возвращает план по ключу фронтенда или ErrInvalidPlan.
func LookupPlan(key string) (Plan, error) {
	plan, ok := plans[key]
	if !ok {
		return Plan{}, ErrInvalidPlan
	}
	return plan, nil
}

// ExpirationDate считает дату окончания доступа для плана planKey, начиная с from.
// Для неизвестного плана срок - defaultPlanDuration дней.
func ExpirationDate(planKey string, from time.Time) time.Time {
	days := defaultPlanDuration
	if plan, ok := plans[planKey]; ok {
		days = plan.DurationDays
	}
	return from.AddDate(0, 0, days)
}
