package pgrepo

import (
	"context"

	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

const advisoryLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// LockRepository транзакционные advisory блокировки postgres. Вне транзакции блокировка снимается сразу.
type LockRepository struct {
	conn uow.DBTX
}

func NewLockRepository(conn uow.DBTX) *LockRepository {
	return &LockRepository{conn: conn}
}

func (l *LockRepository) Lock(ctx context.Context, namespace repoargs.LockNamespace, key string) error {
	if _, err := l.conn.Exec(ctx, advisoryLockQuery, string(namespace)+":"+key); err != nil {
		return convertErr(err, "acquiring lock `%s:%s`", namespace, key)
	}
	return nil
}
