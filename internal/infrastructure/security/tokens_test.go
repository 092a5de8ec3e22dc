package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/memory"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type TokenServiceTestSuite struct {
	suite.Suite
	service *TokenService
	cache   *memory.CacheRepository
	now     time.Time
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}

func (s *TokenServiceTestSuite) SetupTest() {
	s.cache = memory.NewCacheRepository()
	service, err := NewTokenService(config.AuthConfig{
		JWTSecret:         "test-secret-key-for-testing-only-32-bytes",
		Issuer:            "nourish",
		AccessExpiration:  time.Hour,
		RefreshExpiration: 7 * 24 * time.Hour,
	}, s.cache, zaptest.NewLogger(s.T()))
	s.Require().NoError(err)

	s.now = time.Now().Truncate(time.Second)
	service.now = func() time.Time { return s.now }
	s.service = service
}

func (s *TokenServiceTestSuite) TestIssueAndVerify() {
	ctx := context.Background()
	userID := uuid.New()

	pair, err := s.service.Issue(ctx, userID, "admin")
	s.Require().NoError(err)
	s.NotEqual(pair.AccessToken, pair.RefreshToken)
	s.Equal(s.now.Add(time.Hour), pair.AccessExpiresAt)
	s.Equal(s.now.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	claims, err := s.service.Verify(ctx, pair.AccessToken, outbound.TokenAccess)
	s.Require().NoError(err)
	s.Equal(userID, claims.UserID)
	s.Equal("admin", claims.Role)
	s.Equal(outbound.TokenAccess, claims.Kind)
	s.NotEmpty(claims.TokenID)

	refresh, err := s.service.Verify(ctx, pair.RefreshToken, outbound.TokenRefresh)
	s.Require().NoError(err)
	s.Equal(outbound.TokenRefresh, refresh.Kind)
}

func (s *TokenServiceTestSuite) TestVerifyRejectsWrongKind() {
	pair, err := s.service.Issue(context.Background(), uuid.New(), "user")
	s.Require().NoError(err)

	_, err = s.service.Verify(context.Background(), pair.RefreshToken, outbound.TokenAccess)
	s.ErrorIs(err, ErrWrongTokenKind)
}

func (s *TokenServiceTestSuite) TestVerifyRejectsExpired() {
	pair, err := s.service.Issue(context.Background(), uuid.New(), "user")
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Hour)
	_, err = s.service.Verify(context.Background(), pair.AccessToken, outbound.TokenAccess)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestVerifyRejectsForeignSignature() {
	other, err := NewTokenService(config.AuthConfig{
		JWTSecret:        "another-secret-entirely-32-bytes-long",
		Issuer:           "nourish",
		AccessExpiration: time.Hour,
	}, s.cache, zaptest.NewLogger(s.T()))
	s.Require().NoError(err)

	pair, err := other.Issue(context.Background(), uuid.New(), "user")
	s.Require().NoError(err)

	_, err = s.service.Verify(context.Background(), pair.AccessToken, outbound.TokenAccess)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestVerifyRejectsNoneAlgorithm() {
	claims := &Claims{
		Kind: outbound.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "nourish",
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(s.now.Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.service.Verify(context.Background(), unsigned, outbound.TokenAccess)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestRevoke() {
	ctx := context.Background()
	pair, err := s.service.Issue(ctx, uuid.New(), "user")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Revoke(ctx, pair.AccessToken))

	_, err = s.service.Verify(ctx, pair.AccessToken, outbound.TokenAccess)
	s.ErrorIs(err, ErrTokenRevoked)

	// the refresh token of the same pair is independent
	_, err = s.service.Verify(ctx, pair.RefreshToken, outbound.TokenRefresh)
	s.NoError(err)
}

func (s *TokenServiceTestSuite) TestRevokeExpiredTokenIsNoop() {
	ctx := context.Background()
	pair, err := s.service.Issue(ctx, uuid.New(), "user")
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Hour)
	s.NoError(s.service.Revoke(ctx, pair.AccessToken))
	s.Zero(s.cache.Len())
}

func (s *TokenServiceTestSuite) TestRevokeRejectsGarbage() {
	s.ErrorIs(s.service.Revoke(context.Background(), "not-a-jwt"), ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestEphemeralSecret() {
	service, err := NewTokenService(config.AuthConfig{Issuer: "nourish", AccessExpiration: time.Minute}, s.cache, zaptest.NewLogger(s.T()))
	s.Require().NoError(err)
	s.Len(service.secret, 32)

	pair, err := service.Issue(context.Background(), uuid.New(), "user")
	s.Require().NoError(err)
	_, err = service.Verify(context.Background(), pair.AccessToken, outbound.TokenAccess)
	s.NoError(err)
}
