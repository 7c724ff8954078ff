package uow_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/fsdevblog/paperify-pay/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"
)

type counterRepo struct {
	conn uow.DBTX
}

type UOWTestSuite struct {
	suite.Suite
}

func TestUOWSuite(t *testing.T) {
	suite.Run(t, new(UOWTestSuite))
}

func (s *UOWTestSuite) TestTransactionBuildsRepositoryOnce() {
	built := 0
	tx := uow.NewTransaction(nil, map[uow.RepositoryName]uow.RepositoryFactory{
		"counter": func(conn uow.DBTX) uow.Repository {
			built++
			return &counterRepo{conn: conn}
		},
	})

	first, err := uow.GetAs[*counterRepo](tx, "counter")
	s.Require().NoError(err)
	second, err := uow.GetAs[*counterRepo](tx, "counter")
	s.Require().NoError(err)

	s.Same(first, second)
	s.Equal(1, built)
}

func (s *UOWTestSuite) TestTransactionUnknownRepository() {
	tx := uow.NewTransaction(nil, map[uow.RepositoryName]uow.RepositoryFactory{})
	_, err := tx.Get("missing")
	s.ErrorIs(err, uow.ErrRepositoryNotRegistered)
	s.Contains(err.Error(), "missing")
}

func (s *UOWTestSuite) TestGetAsWrongType() {
	ctrl := gomock.NewController(s.T())
	tx := mocks.NewMockTX(ctrl)
	tx.EXPECT().Get(uow.RepositoryName("orders")).Return("not a repository", nil).Times(1)

	_, err := uow.GetAs[*counterRepo](tx, "orders")
	s.ErrorIs(err, uow.ErrInvalidRepositoryType)
}

func (s *UOWTestSuite) TestGetRepositoryAsPropagatesError() {
	ctrl := gomock.NewController(s.T())
	u := mocks.NewMockUOW(ctrl)
	u.EXPECT().GetRepository(uow.RepositoryName("orders")).
		Return(nil, uow.ErrRepositoryNotRegistered).Times(1)

	_, err := uow.GetRepositoryAs[*counterRepo](u, "orders")
	s.ErrorIs(err, uow.ErrRepositoryNotRegistered)
}

func (s *UOWTestSuite) TestIsRetryable() {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "wrapped", err: fmt.Errorf("update order: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "unique_violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, uow.IsRetryable(tc.err))
		})
	}
}
