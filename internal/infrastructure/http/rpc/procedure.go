// Package rpc implements typed query and mutation procedures over HTTP.
// Procedures are composed from a base chain (Public, Protected, Subscribed,
// Admin) and mounted at /api/rpc/<router>.<procedure>.
package rpc

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/infrastructure/security"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Call is the transport view of one procedure invocation
type Call struct {
	Procedure string
	Request   *http.Request
	Identity  *middleware.Identity
	Header    http.Header
}

// HandlerFunc executes a call
type HandlerFunc func(ctx context.Context, call *Call) (interface{}, error)

// Middleware wraps a handler
type Middleware func(next HandlerFunc) HandlerFunc

// Procedure is an ordered middleware chain that endpoints are built from
type Procedure struct {
	chain     []Middleware
	validator *Validator
}

// Use returns a procedure with mw appended to the chain
func (p Procedure) Use(mw ...Middleware) Procedure {
	chain := make([]Middleware, 0, len(p.chain)+len(mw))
	chain = append(chain, p.chain...)
	chain = append(chain, mw...)
	return Procedure{chain: chain, validator: p.validator}
}

func (p Procedure) wrap(h HandlerFunc) HandlerFunc {
	for i := len(p.chain) - 1; i >= 0; i-- {
		h = p.chain[i](h)
	}
	return h
}

// Deps are the collaborators of the standard middleware
type Deps struct {
	Logger        *zap.Logger
	Metrics       *monitoring.Metrics
	Tracing       *monitoring.TracingProvider
	Limiter       security.Limiter
	Sessions      *middleware.SessionResolver
	Admins        middleware.AdminChecker
	Subscriptions middleware.SubscriptionChecker
}

// Builder holds the standard procedure chains
type Builder struct {
	Public     Procedure
	Protected  Procedure
	Subscribed Procedure
	Admin      Procedure

	sessions *middleware.SessionResolver
	logger   *zap.Logger
}

// NewBuilder creates the standard chains. A nil Limiter disables rate limiting.
func NewBuilder(deps Deps) *Builder {
	log := deps.Logger.Named("rpc")
	base := Procedure{validator: NewValidator()}

	public := base.Use(Logging(log, deps.Metrics, deps.Tracing))
	if deps.Limiter != nil {
		public = public.Use(RateLimit(deps.Limiter, deps.Metrics, log))
	}
	protected := public.Use(Auth())

	return &Builder{
		Public:     public,
		Protected:  protected,
		Subscribed: protected.Use(RequireSubscription(deps.Subscriptions)),
		Admin:      protected.Use(RequireAdmin(deps.Admins)),
		sessions:   deps.Sessions,
		logger:     log,
	}
}

// Logging logs each call with its duration and result code
func Logging(logger *zap.Logger, metrics *monitoring.Metrics, tracing *monitoring.TracingProvider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) (interface{}, error) {
			if tracing != nil {
				var span trace.Span
				ctx, span = tracing.StartRPCSpan(ctx, call.Procedure)
				defer span.End()
			}

			start := time.Now()
			out, err := next(ctx, call)
			duration := time.Since(start)

			code := "OK"
			fields := []zap.Field{
				zap.String("procedure", call.Procedure),
				zap.String("request_id", middleware.RequestID(ctx)),
				zap.Duration("duration", duration),
			}
			if call.Identity != nil {
				fields = append(fields, zap.String("user_id", call.Identity.UserID.String()))
			}

			if err != nil {
				appErr := errors.Wrap(err, "An unexpected error occurred")
				code = string(appErr.Code)
				fields = append(fields, zap.String("code", code))
				if appErr.StatusCode() >= http.StatusInternalServerError {
					monitoring.RecordError(ctx, err)
					logger.Error("Procedure failed", append(fields, zap.Error(err))...)
				} else {
					logger.Info("Procedure rejected", append(fields, zap.String("message", appErr.Message))...)
				}
			} else {
				logger.Debug("Procedure completed", fields...)
			}

			metrics.RecordRPC(call.Procedure, code, duration)
			return out, err
		}
	}
}

// RateLimit keys the limiter by user when signed in, otherwise by client IP.
// A failing limiter backend lets the call through.
func RateLimit(limiter security.Limiter, metrics *monitoring.Metrics, logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) (interface{}, error) {
			key := "ip:" + clientIP(call.Request)
			if call.Identity != nil {
				key = "user:" + call.Identity.UserID.String()
			}

			decision, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(ctx, call)
			}

			if decision.Limit > 0 {
				call.Header.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				call.Header.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			}
			if !decision.Allowed {
				metrics.RecordRateLimited(call.Procedure)
				retry := decision.RetryAfter
				if retry < time.Second {
					retry = time.Second
				}
				return nil, errors.NewTooManyRequestsError(retry)
			}
			return next(ctx, call)
		}
	}
}

// Auth requires a verified session
func Auth() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) (interface{}, error) {
			if call.Identity == nil {
				return nil, errors.NewUnauthorizedError("")
			}
			return next(ctx, call)
		}
	}
}

// RequireSubscription requires an active subscription, looked up per call
func RequireSubscription(subs middleware.SubscriptionChecker) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) (interface{}, error) {
			ok, err := subs.HasActiveSubscription(ctx, call.Identity.UserID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.NewSubscriptionRequiredError(call.Procedure)
			}
			return next(ctx, call)
		}
	}
}

// RequireAdmin requires the admin role, looked up per call
func RequireAdmin(admins middleware.AdminChecker) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *Call) (interface{}, error) {
			ok, err := admins.IsAdmin(ctx, call.Identity.UserID)
			if err != nil {
				return nil, errors.NewDatabaseError("check role", err)
			}
			if !ok {
				return nil, errors.NewForbiddenError("Administrator access required")
			}
			return next(ctx, call)
		}
	}
}

// UserID returns the caller of a protected procedure. It panics outside the
// Protected chain, where no identity is guaranteed.
func UserID(ctx context.Context) uuid.UUID {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		panic("rpc: UserID called without an authenticated identity")
	}
	return id.UserID
}

// IsAdminCaller reports whether an optional caller carries the admin role
func IsAdminCaller(ctx context.Context) bool {
	id, ok := middleware.IdentityFrom(ctx)
	return ok && id.IsAdmin()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
