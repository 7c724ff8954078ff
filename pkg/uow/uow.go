package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultMaxAttempts = 3

type RepositoryName string
type Repository any
type RepositoryFactory func(DBTX) Repository

// UnitOfWork реализация UOW поверх пула postgres соединений.
type UnitOfWork struct {
	conn         *pgxpool.Pool
	repositories map[RepositoryName]RepositoryFactory
	txOptions    pgx.TxOptions
	maxAttempts  int
}

func NewUnitOfWork(conn *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		conn:         conn,
		repositories: make(map[RepositoryName]RepositoryFactory),
		txOptions:    pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		maxAttempts:  DefaultMaxAttempts,
	}
}

// SetMaxAttempts сколько раз Do выполняет транзакцию, прерванную deadlock или конфликтом сериализации.
func (u *UnitOfWork) SetMaxAttempts(n int) *UnitOfWork {
	if n > 0 {
		u.maxAttempts = n
	}
	return u
}

func (u *UnitOfWork) SetIsoLevel(level pgx.TxIsoLevel) *UnitOfWork {
	u.txOptions.IsoLevel = level
	return u
}

// Register регистрирует фабрику репозитория. Повторная регистрация - ErrRepositoryAlreadyRegistered.
func (u *UnitOfWork) Register(name RepositoryName, factory RepositoryFactory) error {
	if _, ok := u.repositories[name]; ok {
		return fmt.Errorf("%w: %s", ErrRepositoryAlreadyRegistered, name)
	}
	u.repositories[name] = factory
	return nil
}

// Do выполняет fn в транзакции. Ошибка fn откатывает транзакцию. Если сервер прервал транзакцию
// (IsRetryable), fn выполняется заново в новой транзакции, поэтому fn не должна иметь побочных эффектов
// вне транзакции.
func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, TX) error) error {
	var err error
	for range u.maxAttempts {
		if err = u.runOnce(ctx, fn); err == nil || !IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrAttemptsExhausted, err)
}

func (u *UnitOfWork) runOnce(ctx context.Context, fn func(context.Context, TX) error) (err error) {
	tx, err := u.conn.BeginTx(ctx, u.txOptions)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		rbErr := tx.Rollback(ctx)
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, rbErr)
		}
	}()

	if err = fn(ctx, NewTransaction(tx, u.repositories)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetRepository репозиторий поверх пула, вне транзакции.
func (u *UnitOfWork) GetRepository(name RepositoryName) (Repository, error) {
	factory, ok := u.repositories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotRegistered, name)
	}
	return factory(u.conn), nil
}

// GetRepositoryAs то же, что GetRepository, с приведением к T. Ошибки: ErrRepositoryNotRegistered,
// ErrInvalidRepositoryType.
func GetRepositoryAs[T any](u UOW, name RepositoryName) (T, error) {
	var zero T
	repo, err := u.GetRepository(name)
	if err != nil {
		return zero, err //nolint:wrapcheck
	}
	typed, ok := repo.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrInvalidRepositoryType, name, repo)
	}
	return typed, nil
}
