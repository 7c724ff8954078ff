package pgrepo

import (
	"errors"
	"fmt"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// convertErr приводит ошибку драйвера к ошибкам domain и добавляет описание операции:
// pgx.ErrNoRows - domain.ErrRecordNotFound, нарушение уникального индекса - domain.ErrDuplicateKey
// (с именем индекса в тексте), остальное - domain.ErrUnknown.
// Исходная ошибка остается в цепочке, по ней uow.IsRetryable решает, повторять ли транзакцию.
func convertErr(err error, format string, formatArgs ...any) error {
	if err == nil {
		return nil
	}
	op := fmt.Sprintf(format, formatArgs...)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("[pgrepo] %s: %w", op, domain.ErrRecordNotFound)
	}

	kind := domain.ErrUnknown
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		kind = domain.ErrDuplicateKey
		if pgErr.ConstraintName != "" {
			op = fmt.Sprintf("%s [%s]", op, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("[pgrepo] %s: %w: %w", op, kind, err)
}
