// Package middleware provides HTTP middleware components: request logging,
// panic recovery, security headers and the edge route guard
package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

// RequestID returns the request ID assigned by chi's RequestID middleware
func RequestID(ctx context.Context) string {
	return chimiddleware.GetReqID(ctx)
}

// Logger provides structured logging for requests and records HTTP metrics
func Logger(logger *zap.Logger, metrics *monitoring.Metrics, skip ...string) func(http.Handler) http.Handler {
	log := logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			latency := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			metrics.RecordHTTPRequest(r.Method, route, status, latency)

			for _, p := range skip {
				if r.URL.Path == p {
					return
				}
			}

			fields := []zap.Field{
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("ip", r.RemoteAddr),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", latency),
				zap.String("user_agent", r.UserAgent()),
			}
			if id, ok := IdentityFrom(r.Context()); ok {
				fields = append(fields, zap.String("user_id", id.UserID.String()))
			}

			switch {
			case status >= 500:
				log.Error("Server error", fields...)
			case status >= 400:
				log.Warn("Client error", fields...)
			case status >= 300:
				log.Info("Redirection", fields...)
			default:
				log.Info("Request completed", fields...)
			}
		})
	}
}

// Recovery recovers from panics and returns the 500 error envelope
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("error", rec),
						zap.String("stack", string(debug.Stack())),
					)
					WriteError(w, r, errors.NewInternalError(""))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Security adds security headers. The CSP is only sent in production.
func Security(production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if production {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
				h.Set("Content-Security-Policy",
					"default-src 'self'; "+
						"script-src 'self'; "+
						"style-src 'self' 'unsafe-inline'; "+
						"img-src 'self' data: https:; "+
						"connect-src 'self' wss:; "+
						"frame-ancestors 'none'; "+
						"base-uri 'self'")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Maintenance answers 503 for everything except health probes while enabled()
func Maintenance(enabled func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enabled() && r.URL.Path != "/healthz" && r.URL.Path != "/readyz" {
				w.Header().Set("Retry-After", "120")
				WriteError(w, r, errors.NewUnavailableError("Down for maintenance"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
