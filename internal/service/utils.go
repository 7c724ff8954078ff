package service

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomBase36 возвращает случайную строку длины n из алфавита [0-9A-Z].
func randomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Alphabet[rand.IntN(len(base36Alphabet))] // nolint:gosec
	}
	return string(b)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func txOrderRepo(tx uow.TX) (OrderRepository, error) {
	return uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
}

func txPaymentRepo(tx uow.TX) (PaymentRepository, error) {
	return uow.GetAs[PaymentRepository](tx, uow.RepositoryName(repoargs.PaymentRepoName))
}

func txReferralRepo(tx uow.TX) (ReferralRepository, error) {
	return uow.GetAs[ReferralRepository](tx, uow.RepositoryName(repoargs.ReferralRepoName))
}

func txLocker(tx uow.TX) (Locker, error) {
	return uow.GetAs[Locker](tx, uow.RepositoryName(repoargs.LockRepoName))
}

// isNotFound короткая запись для проверки на domain.ErrRecordNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrRecordNotFound)
}

type noopMetrics struct{}

func (noopMetrics) OrderTransition(domain.OrderStatusType) {}
func (noopMetrics) PaymentApproved(string)                 {}
func (noopMetrics) ReferralCredited()                      {}
func (noopMetrics) GatewayWebhook(string)                  {}
