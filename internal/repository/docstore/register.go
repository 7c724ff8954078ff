package docstore

import (
	"fmt"

	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

// RegisterRepositories регистрирует в u все репозитории хранилища.
func RegisterRepositories(u *UnitOfWork) error {
	factories := map[repoargs.RepositoryName]RepositoryFactory{
		repoargs.OrderRepoName: func(s *Session) uow.Repository {
			return NewOrderRepository(s)
		},
		repoargs.PaymentRepoName: func(s *Session) uow.Repository {
			return NewPaymentRepository(s)
		},
		repoargs.ReferralRepoName: func(s *Session) uow.Repository {
			return NewReferralRepository(s)
		},
		repoargs.LockRepoName: func(s *Session) uow.Repository {
			return NewLockRepository(s)
		},
	}
	for name, factory := range factories {
		if err := u.Register(uow.RepositoryName(name), factory); err != nil {
			return fmt.Errorf("registering %s repository: %w", name, err)
		}
	}
	return nil
}
