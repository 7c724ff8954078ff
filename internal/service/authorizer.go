package service

import (
	"github.com/fsdevblog/paperify-pay/internal/domain"
)

// EmailAuthorizer дает право проверять платежи пользователям из заданного списка email.
type EmailAuthorizer struct {
	reviewers map[string]struct{}
}

func NewEmailAuthorizer(emails ...string) *EmailAuthorizer {
	reviewers := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if normalized := domain.NormalizeEmail(email); normalized != "" {
			reviewers[normalized] = struct{}{}
		}
	}
	return &EmailAuthorizer{reviewers: reviewers}
}

// CanReviewPayments сравнивает нормализованные email, пустая identity прав не имеет.
func (a *EmailAuthorizer) CanReviewPayments(identity string) bool {
	normalized := domain.NormalizeEmail(identity)
	if normalized == "" {
		return false
	}
	_, ok := a.reviewers[normalized]
	return ok
}
