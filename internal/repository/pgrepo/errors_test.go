package pgrepo

import (
	"errors"
	"testing"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"
)

type ConvertErrTestSuite struct {
	suite.Suite
}

func TestConvertErrSuite(t *testing.T) {
	suite.Run(t, new(ConvertErrTestSuite))
}

func (s *ConvertErrTestSuite) TestNil() {
	s.NoError(convertErr(nil, "noop"))
}

func (s *ConvertErrTestSuite) TestNoRows() {
	err := convertErr(pgx.ErrNoRows, "finding order `%s`", "ORD-1")
	s.ErrorIs(err, domain.ErrRecordNotFound)
	s.Contains(err.Error(), "ORD-1")
}

func (s *ConvertErrTestSuite) TestUniqueViolation() {
	err := convertErr(&pgconn.PgError{
		Code:           uniqueViolationCode,
		Message:        "duplicate",
		ConstraintName: "payments_transaction_id_uidx",
	}, "creating payment")
	s.ErrorIs(err, domain.ErrDuplicateKey)
	s.Contains(err.Error(), "payments_transaction_id_uidx")
	s.False(uow.IsRetryable(err))
}

func (s *ConvertErrTestSuite) TestDeadlockStaysRetryable() {
	err := convertErr(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, "updating order")
	s.ErrorIs(err, domain.ErrUnknown)
	s.NotErrorIs(err, domain.ErrDuplicateKey)
	s.True(uow.IsRetryable(err))

	var pgErr *pgconn.PgError
	s.Require().ErrorAs(err, &pgErr)
	s.Equal("40P01", pgErr.Code)
}

func (s *ConvertErrTestSuite) TestPlainError() {
	err := convertErr(errors.New("boom"), "anything")
	s.ErrorIs(err, domain.ErrUnknown)
	s.Contains(err.Error(), "boom")
}

func (s *ConvertErrTestSuite) TestSafeConvert() {
	v, err := safeConvertUintToInt32(50)
	s.Require().NoError(err)
	s.Equal(int32(50), v)

	_, err = safeConvertUintToInt32(uint(1) << 40)
	s.Error(err)
}
