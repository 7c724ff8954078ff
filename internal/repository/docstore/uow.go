package docstore

import (
	"context"

	"github.com/fsdevblog/paperify-pay/pkg/uow"
)

// RepositoryFactory строит репозиторий поверх сессии хранилища.
type RepositoryFactory func(*Session) uow.Repository

// Session доступ репозиториев к состоянию. Транзакционная сессия работает с копией состояния под уже
// захваченным мьютексом хранилища. Сессия без транзакции захватывает мьютекс на каждую операцию и
// сразу записывает изменения на диск.
type Session struct {
	store *Store
	st    *state
	dirty fileKind
	inTx  bool
}

func (s *Session) read(fn func(st *state) error) error {
	if s.inTx {
		return fn(s.st)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return fn(s.store.st)
}

func (s *Session) write(kind fileKind, fn func(st *state) error) error {
	if s.inTx {
		if err := fn(s.st); err != nil {
			return err
		}
		s.dirty |= kind
		return nil
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	next := s.store.st.clone()
	if err := fn(next); err != nil {
		return err
	}
	return s.store.commit(next, kind)
}

// UnitOfWork реализация uow.UOW поверх Store. Транзакции выполняются строго по одной.
// Внутри Do нельзя обращаться к репозиториям, полученным через GetRepository: мьютекс не реентерабелен.
type UnitOfWork struct {
	store        *Store
	repositories map[uow.RepositoryName]RepositoryFactory
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{
		store:        store,
		repositories: make(map[uow.RepositoryName]RepositoryFactory),
	}
}

// Register регистрирует фабрику репозитория. Повторная регистрация - uow.ErrRepositoryAlreadyRegistered.
func (u *UnitOfWork) Register(name uow.RepositoryName, factory RepositoryFactory) error {
	if _, ok := u.repositories[name]; ok {
		return uow.ErrRepositoryAlreadyRegistered
	}
	u.repositories[name] = factory
	return nil
}

// Do выполняет fn над копией состояния. Изменения записываются на диск, только если fn вернула nil.
func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	sess := &Session{store: u.store, st: u.store.st.clone(), inTx: true}
	if err := fn(ctx, &transaction{sess: sess, repositories: u.repositories}); err != nil {
		return err
	}
	if sess.dirty == 0 {
		return nil
	}
	return u.store.commit(sess.st, sess.dirty)
}

// GetRepository возвращает репозиторий вне транзакции или uow.ErrRepositoryNotRegistered.
func (u *UnitOfWork) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	if factory, ok := u.repositories[name]; ok {
		return factory(&Session{store: u.store}), nil
	}
	return nil, uow.ErrRepositoryNotRegistered
}

type transaction struct {
	sess         *Session
	repositories map[uow.RepositoryName]RepositoryFactory
}

func (t *transaction) Get(name uow.RepositoryName) (uow.Repository, error) {
	if factory, ok := t.repositories[name]; ok {
		return factory(t.sess), nil
	}
	return nil, uow.ErrRepositoryNotRegistered
}
