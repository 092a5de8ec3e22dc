package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

// Route tables. A route matches its exact path and everything below it;
// "/" matches only itself.
var (
	// PublicRoutes never require a session. RPC procedures run their own checks.
	PublicRoutes = []string{
		"/",
		"/login",
		"/signup",
		"/pricing",
		"/api/auth",
		"/api/webhooks",
		"/api/rpc",
		"/healthz",
		"/readyz",
		"/metrics",
		"/static",
	}

	ProtectedRoutes = []string{
		"/dashboard",
		"/meal-plans",
		"/nutrition",
		"/profile",
		"/settings",
		"/favorites",
		"/ws",
	}

	SubscriptionRoutes = []string{
		"/meal-plans/generate",
		"/nutrition/trends",
	}

	AdminRoutes = []string{
		"/admin",
	}

	authPages = []string{"/login", "/signup"}
	apiRoutes = []string{"/api", "/ws"}
)

// MatchesRoute reports whether path is one of routes or lies beneath one
func MatchesRoute(path string, routes []string) bool {
	for _, route := range routes {
		if route == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// IsAPIPath reports whether failures on path are answered with status codes
// rather than redirects
func IsAPIPath(path string) bool {
	return MatchesRoute(path, apiRoutes)
}

// AdminChecker looks up the role of a user
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// SubscriptionChecker looks up whether a user may use subscribed features
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Guard decision outcomes, also used as metric labels
const (
	OutcomeAllow           = "allow"
	OutcomeRedirect        = "redirect"
	OutcomeUnauthorized    = "unauthorized"
	OutcomeForbidden       = "forbidden"
	OutcomePaymentRequired = "payment_required"
	OutcomeError           = "error"
)

// Guard classifies every request against the route tables and stops
// unauthenticated, unprivileged or unsubscribed callers at the edge
type Guard struct {
	sessions *SessionResolver
	admins   AdminChecker
	subs     SubscriptionChecker
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewGuard creates the edge route guard
func NewGuard(sessions *SessionResolver, admins AdminChecker, subs SubscriptionChecker, metrics *monitoring.Metrics, logger *zap.Logger) *Guard {
	return &Guard{
		sessions: sessions,
		admins:   admins,
		subs:     subs,
		metrics:  metrics,
		logger:   logger.Named("route-guard"),
	}
}

// Handler returns the chi-compatible middleware
func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		ctx := r.Context()

		identity, err := g.sessions.Resolve(ctx, r)
		if err != nil {
			g.logger.Debug("Ignoring invalid session", zap.String("path", path), zap.Error(err))
		}
		if identity != nil {
			ctx = WithIdentity(ctx, identity)
			r = r.WithContext(ctx)
		}

		if identity != nil && MatchesRoute(path, authPages) {
			g.redirect(w, r, "/dashboard")
			return
		}

		if MatchesRoute(path, PublicRoutes) {
			g.allow(w, r, next)
			return
		}

		isAdmin := MatchesRoute(path, AdminRoutes)
		isSubscription := MatchesRoute(path, SubscriptionRoutes)
		isProtected := MatchesRoute(path, ProtectedRoutes)
		if !isAdmin && !isSubscription && !isProtected {
			g.allow(w, r, next)
			return
		}

		api := IsAPIPath(path)
		if identity == nil {
			if api {
				g.fail(w, r, OutcomeUnauthorized, errors.NewUnauthorizedError(""))
				return
			}
			g.redirect(w, r, "/login?redirectTo="+url.QueryEscape(path))
			return
		}

		if isAdmin {
			ok, err := g.admins.IsAdmin(ctx, identity.UserID)
			if err != nil {
				g.lookupFailed(w, r, "role", err)
				return
			}
			if !ok {
				if api {
					g.fail(w, r, OutcomeForbidden, errors.NewForbiddenError("Administrator access required"))
					return
				}
				g.redirect(w, r, "/dashboard")
				return
			}
		}

		if isSubscription {
			ok, err := g.subs.HasActiveSubscription(ctx, identity.UserID)
			if err != nil {
				g.lookupFailed(w, r, "subscription", err)
				return
			}
			if !ok {
				if api {
					g.fail(w, r, OutcomePaymentRequired, errors.NewSubscriptionRequiredError(path))
					return
				}
				g.redirect(w, r, "/pricing")
				return
			}
		}

		g.allow(w, r, next)
	})
}

func (g *Guard) allow(w http.ResponseWriter, r *http.Request, next http.Handler) {
	g.metrics.RecordGuardDecision(OutcomeAllow)
	next.ServeHTTP(w, r)
}

func (g *Guard) redirect(w http.ResponseWriter, r *http.Request, location string) {
	g.metrics.RecordGuardDecision(OutcomeRedirect)
	http.Redirect(w, r, location, http.StatusFound)
}

func (g *Guard) fail(w http.ResponseWriter, r *http.Request, outcome string, appErr *errors.AppError) {
	g.metrics.RecordGuardDecision(outcome)
	WriteError(w, r, appErr)
}

// lookupFailed answers 500 on API paths; pages fall back to the login page
func (g *Guard) lookupFailed(w http.ResponseWriter, r *http.Request, what string, err error) {
	g.logger.Error("Route guard lookup failed",
		zap.String("lookup", what),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	if IsAPIPath(r.URL.Path) {
		g.fail(w, r, OutcomeError, errors.Wrap(err, "Authorization check failed"))
		return
	}
	g.redirect(w, r, "/login?redirectTo="+url.QueryEscape(r.URL.Path))
}

// WriteError renders an AppError as the JSON error envelope
func WriteError(w http.ResponseWriter, r *http.Request, appErr *errors.AppError) {
	if retry := appErr.RetryAfter(); retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
	}
	WriteJSON(w, appErr.StatusCode(), errors.ToErrorResponse(appErr, RequestID(r.Context())))
}

// WriteJSON writes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
