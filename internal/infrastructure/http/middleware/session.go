package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/ports/outbound"
)

// Identity is the authenticated caller of a request
type Identity struct {
	UserID  uuid.UUID
	Role    string
	TokenID string
	Token   string
}

// IsAdmin reports the role carried by the token. Guards that protect admin
// surfaces confirm the role against the database instead.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == "admin"
}

type identityKey struct{}

// WithIdentity stores the caller in ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored in ctx, if any
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// SessionResolver reads the access token from the Authorization header or
// the session cookie and verifies it
type SessionResolver struct {
	tokens     outbound.TokenIssuer
	cookieName string
}

// NewSessionResolver creates a resolver; cookieName defaults to "session"
func NewSessionResolver(tokens outbound.TokenIssuer, cookieName string) *SessionResolver {
	if cookieName == "" {
		cookieName = "session"
	}
	return &SessionResolver{tokens: tokens, cookieName: cookieName}
}

// CookieName is the name of the session cookie
func (s *SessionResolver) CookieName() string {
	return s.cookieName
}

// Token extracts the raw access token, preferring the bearer header
func (s *SessionResolver) Token(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Resolve returns the caller or nil when the request carries no valid session.
// The error is the verification failure, useful only for logging.
func (s *SessionResolver) Resolve(ctx context.Context, r *http.Request) (*Identity, error) {
	token := s.Token(r)
	if token == "" {
		return nil, nil
	}

	claims, err := s.tokens.Verify(ctx, token, outbound.TokenAccess)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID:  claims.UserID,
		Role:    claims.Role,
		TokenID: claims.TokenID,
		Token:   token,
	}, nil
}
