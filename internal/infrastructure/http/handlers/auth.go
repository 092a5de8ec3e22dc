// Package handlers provides the plain HTTP endpoints that sit beside the RPC
// routers: session authentication and provider webhooks.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

const (
	// RefreshCookieName holds the refresh token, scoped to the auth endpoints
	RefreshCookieName = "refresh"
	authPath          = "/api/auth"
	maxAuthBody       = 64 << 10
)

// AuthHandlers issue and clear session cookies
type AuthHandlers struct {
	users     inbound.UserService
	sessions  *middleware.SessionResolver
	validator *rpc.Validator
	secure    bool
	logger    *zap.Logger
}

// NewAuthHandlers creates the authentication endpoints
func NewAuthHandlers(
	users inbound.UserService,
	sessions *middleware.SessionResolver,
	cfg config.AuthConfig,
	logger *zap.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		users:     users,
		sessions:  sessions,
		validator: rpc.NewValidator(),
		secure:    cfg.CookieSecure,
		logger:    logger.Named("auth"),
	}
}

// Routes mounts the handlers under /api/auth
func (h *AuthHandlers) Routes(r chi.Router) {
	r.Route(authPath, func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})
}

// Register handles POST /api/auth/register
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.RegisterCommand
	if err := h.decode(r, &cmd); err != nil {
		middleware.WriteError(w, r, errors.Wrap(err, "Invalid request"))
		return
	}

	result, err := h.users.Register(r.Context(), cmd)
	if err != nil {
		middleware.WriteError(w, r, errors.Wrap(err, "Registration failed"))
		return
	}

	h.setSession(w, result)
	middleware.WriteJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.LoginCommand
	if err := h.decode(r, &cmd); err != nil {
		middleware.WriteError(w, r, errors.Wrap(err, "Invalid request"))
		return
	}

	result, err := h.users.Login(r.Context(), cmd)
	if err != nil {
		middleware.WriteError(w, r, errors.Wrap(err, "Login failed"))
		return
	}

	h.setSession(w, result)
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Refresh handles POST /api/auth/refresh. The token comes from the body or
// the refresh cookie.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.RefreshCommand
	if err := decodeOptional(r, &cmd); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if cmd.RefreshToken == "" {
		if c, err := r.Cookie(RefreshCookieName); err == nil {
			cmd.RefreshToken = c.Value
		}
	}
	if cmd.RefreshToken == "" {
		middleware.WriteError(w, r, errors.NewUnauthorizedError("Refresh token required"))
		return
	}

	result, err := h.users.Refresh(r.Context(), cmd.RefreshToken)
	if err != nil {
		h.clearSession(w)
		middleware.WriteError(w, r, errors.Wrap(err, "Refresh failed"))
		return
	}

	h.setSession(w, result)
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Logout handles POST /api/auth/logout. Cookies are cleared even when
// revocation fails.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.RefreshCommand
	_ = decodeOptional(r, &cmd)
	if cmd.RefreshToken == "" {
		if c, err := r.Cookie(RefreshCookieName); err == nil {
			cmd.RefreshToken = c.Value
		}
	}

	access := h.sessions.Token(r)
	if err := h.users.Logout(r.Context(), access, cmd.RefreshToken); err != nil {
		h.logger.Warn("Failed to revoke tokens on logout", zap.Error(err))
	}

	h.clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandlers) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAuthBody)).Decode(dst); err != nil {
		return errors.NewBadRequestError("Malformed JSON body")
	}
	return h.validator.Validate(dst)
}

// decodeOptional accepts an empty body
func decodeOptional(r *http.Request, dst interface{}) *errors.AppError {
	err := json.NewDecoder(io.LimitReader(r.Body, maxAuthBody)).Decode(dst)
	if err != nil && err != io.EOF {
		return errors.NewBadRequestError("Malformed JSON body")
	}
	return nil
}

func (h *AuthHandlers) setSession(w http.ResponseWriter, result *inbound.AuthResult) {
	http.SetCookie(w, h.cookie(h.sessions.CookieName(), "/", result.AccessToken, result.ExpiresAt))
	http.SetCookie(w, h.cookie(RefreshCookieName, authPath, result.RefreshToken, result.RefreshExpiresAt))
}

func (h *AuthHandlers) clearSession(w http.ResponseWriter) {
	for _, c := range []*http.Cookie{
		h.cookie(h.sessions.CookieName(), "/", "", time.Unix(0, 0)),
		h.cookie(RefreshCookieName, authPath, "", time.Unix(0, 0)),
	} {
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h *AuthHandlers) cookie(name, path, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
