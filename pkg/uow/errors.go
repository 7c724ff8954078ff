package uow

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrRepositoryNotRegistered     = errors.New("[uow] repository not registered")
	ErrRepositoryAlreadyRegistered = errors.New("[uow] repository already registered")
	ErrInvalidRepositoryType       = errors.New("[uow] invalid repository type")
	ErrAttemptsExhausted           = errors.New("[uow] transaction retry attempts exhausted")
)

// коды postgres, при которых транзакцию можно безопасно выполнить заново.
var retryableCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
}

// IsRetryable сообщает, что транзакция прервана сервером из-за конфликта и ее можно повторить целиком.
// Репозитории должны сохранять *pgconn.PgError в цепочке ошибок.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	_, ok := retryableCodes[pgErr.Code]
	return ok
}
