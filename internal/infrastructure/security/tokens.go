// Package security provides session tokens and request rate limiting
package security

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"go.uber.org/zap"
)

const audience = "nourish-api"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrWrongTokenKind = errors.New("unexpected token kind")
)

// Claims represents JWT claims structure
type Claims struct {
	Role string             `json:"role"`
	Kind outbound.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 session tokens. Revocations are kept
// in the cache until the token would have expired anyway.
type TokenService struct {
	secret            []byte
	issuer            string
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	cache             outbound.CacheRepository
	logger            *zap.Logger
	now               func() time.Time
}

// NewTokenService creates a token service. An empty secret is replaced by a
// random one, which invalidates sessions on restart.
func NewTokenService(cfg config.AuthConfig, cache outbound.CacheRepository, logger *zap.Logger) (*TokenService, error) {
	log := logger.Named("tokens")
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		log.Warn("auth.jwt_secret is empty, using an ephemeral signing key")
	}

	return &TokenService{
		secret:            secret,
		issuer:            cfg.Issuer,
		accessExpiration:  cfg.AccessExpiration,
		refreshExpiration: cfg.RefreshExpiration,
		cache:             cache,
		logger:            log,
		now:               time.Now,
	}, nil
}

var _ outbound.TokenIssuer = (*TokenService)(nil)

// Issue creates an access and refresh token pair
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, role string) (*outbound.TokenPair, error) {
	now := s.now()
	access, accessExp, err := s.sign(userID, role, outbound.TokenAccess, now, s.accessExpiration)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.sign(userID, role, outbound.TokenRefresh, now, s.refreshExpiration)
	if err != nil {
		return nil, err
	}

	return &outbound.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *TokenService) sign(userID uuid.UUID, role string, kind outbound.TokenKind, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

func (s *TokenService) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify checks signature, expiry, kind and revocation
func (s *TokenService) Verify(ctx context.Context, token string, kind outbound.TokenKind) (*outbound.TokenClaims, error) {
	claims, err := s.parse(token, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	revoked, err := s.cache.Exists(ctx, revocationKey(claims.ID))
	if err != nil {
		s.logger.Warn("Failed to check token revocation", zap.Error(err))
	} else if revoked {
		return nil, ErrTokenRevoked
	}

	return &outbound.TokenClaims{
		TokenID:   claims.ID,
		UserID:    userID,
		Role:      claims.Role,
		Kind:      claims.Kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke blocks a token for the rest of its lifetime. Expired tokens need no entry.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}

	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, revocationKey(claims.ID), []byte("1"), remaining); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}

	s.logger.Debug("Token revoked", zap.String("jti", claims.ID), zap.String("kind", string(claims.Kind)))
	return nil
}

func revocationKey(tokenID string) string {
	return "revoked_token:" + tokenID
}
