package pgrepo

import (
	"fmt"

	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

// RegisterRepositories регистрирует в u все postgres репозитории.
func RegisterRepositories(u *uow.UnitOfWork) error {
	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.OrderRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewOrderRepository(dbtx)
		},
		repoargs.PaymentRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewPaymentRepository(dbtx)
		},
		repoargs.ReferralRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewReferralRepository(dbtx)
		},
		repoargs.LockRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewLockRepository(dbtx)
		},
	}
	for name, factory := range factories {
		if err := u.Register(uow.RepositoryName(name), factory); err != nil {
			return fmt.Errorf("registering %s repository: %w", name, err)
		}
	}
	return nil
}
