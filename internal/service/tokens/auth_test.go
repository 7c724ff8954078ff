package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

type TokensTestSuite struct {
	suite.Suite
	key []byte
}

func TestTokensSuite(t *testing.T) {
	suite.Run(t, new(TokensTestSuite))
}

func (s *TokensTestSuite) SetupTest() {
	s.key = []byte("secret")
}

func (s *TokensTestSuite) TestRoundTrip() {
	token, err := GenerateUserJWT("user@example.com", time.Hour, s.key)
	s.Require().NoError(err)

	claims, err := ValidateUserJWT(token, s.key)
	s.Require().NoError(err)
	s.Equal("user@example.com", claims.Email)
}

func (s *TokensTestSuite) TestExpired() {
	token, err := GenerateUserJWT("user@example.com", -time.Minute, s.key)
	s.Require().NoError(err)

	_, err = ValidateUserJWT(token, s.key)
	s.ErrorIs(err, ErrTokenExpired)
}

func (s *TokensTestSuite) TestWrongKey() {
	token, err := GenerateUserJWT("user@example.com", time.Hour, s.key)
	s.Require().NoError(err)

	_, err = ValidateUserJWT(token, []byte("other"))
	s.Error(err)
}

func (s *TokensTestSuite) TestSubjectFallback() {
	token, err := generateJWT(jwt.RegisteredClaims{
		Subject:   "sub@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, s.key)
	s.Require().NoError(err)

	claims, err := ValidateUserJWT(token, s.key)
	s.Require().NoError(err)
	s.Equal("sub@example.com", claims.Email)
}

func (s *TokensTestSuite) TestNoEmail() {
	token, err := generateJWT(jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, s.key)
	s.Require().NoError(err)

	_, err = ValidateUserJWT(token, s.key)
	s.ErrorIs(err, ErrNoEmailClaim)
}
