package uow

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transaction репозитории одной транзакции. Каждый репозиторий создается один раз на транзакцию.
type Transaction struct {
	tx        pgx.Tx
	factories map[RepositoryName]RepositoryFactory
	bound     map[RepositoryName]Repository
}

func NewTransaction(tx pgx.Tx, factories map[RepositoryName]RepositoryFactory) *Transaction {
	return &Transaction{
		tx:        tx,
		factories: factories,
		bound:     make(map[RepositoryName]Repository, len(factories)),
	}
}

func (t *Transaction) Get(name RepositoryName) (Repository, error) {
	if repo, ok := t.bound[name]; ok {
		return repo, nil
	}
	factory, ok := t.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotRegistered, name)
	}
	repo := factory(t.tx)
	t.bound[name] = repo
	return repo, nil
}

// GetAs достает репозиторий из транзакции и приводит его к T.
func GetAs[T any](t TX, name RepositoryName) (T, error) {
	var zero T
	repo, err := t.Get(name)
	if err != nil {
		return zero, err //nolint:wrapcheck
	}
	typed, ok := repo.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrInvalidRepositoryType, name, repo)
	}
	return typed, nil
}
