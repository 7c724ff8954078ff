package service

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/suite"
)

type EmailAuthorizerTestSuite struct {
	suite.Suite
}

func TestEmailAuthorizerTestSuite(t *testing.T) {
	suite.Run(t, new(EmailAuthorizerTestSuite))
}

func (s *EmailAuthorizerTestSuite) TestCanReviewPayments() {
	a := NewEmailAuthorizer(" Admin@Example.com ", "", "owner@example.com")

	s.True(a.CanReviewPayments("admin@example.com"))
	s.True(a.CanReviewPayments("ADMIN@example.com"))
	s.True(a.CanReviewPayments("owner@example.com"))
	s.False(a.CanReviewPayments("user@example.com"))
	s.False(a.CanReviewPayments(""))
}

func (s *EmailAuthorizerTestSuite) TestNoReviewers() {
	s.False(NewEmailAuthorizer().CanReviewPayments("admin@example.com"))
}

func (s *EmailAuthorizerTestSuite) TestRandomIdentities() {
	reviewer := gofakeit.Email()
	a := NewEmailAuthorizer(strings.ToUpper(reviewer))
	s.True(a.CanReviewPayments(reviewer))

	for range 20 {
		other := gofakeit.Email()
		if strings.EqualFold(other, reviewer) {
			continue
		}
		s.False(a.CanReviewPayments(other), other)
	}
}
