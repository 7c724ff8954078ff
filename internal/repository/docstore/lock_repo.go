package docstore

import (
	"context"

	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
)

// LockRepository транзакции хранилища уже выполняются по одной, поэтому блокировка ключа ничего не делает.
type LockRepository struct{}

func NewLockRepository(*Session) *LockRepository {
	return &LockRepository{}
}

func (l *LockRepository) Lock(context.Context, repoargs.LockNamespace, string) error {
	return nil
}
