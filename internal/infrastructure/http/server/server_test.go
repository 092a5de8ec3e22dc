package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/http/handlers"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/infrastructure/http/web"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/testutil"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

type fakeSubscriptions struct {
	inbound.SubscriptionService
}

func (fakeSubscriptions) Plans(context.Context) []inbound.PlanDTO {
	return []inbound.PlanDTO{{ID: "free", Name: "Free", Interval: "month"}}
}

type fakeUsers struct {
	inbound.UserService
}

type testServer struct {
	handler     http.Handler
	maintenance *atomic.Bool
	dbDown      *atomic.Bool
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{
		App:        config.AppConfig{Name: "nourish", Environment: "test"},
		Server:     config.ServerConfig{Host: "127.0.0.1", Port: 0, EnableCompression: true},
		Monitoring: config.MonitoringConfig{EnableMetrics: true, MetricsPath: "/metrics"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	metrics := monitoring.NewMetrics()
	sessions := middleware.NewSessionResolver(new(testutil.MockTokenIssuer), "session")
	builder := rpc.NewBuilder(rpc.Deps{Logger: logger, Metrics: metrics, Sessions: sessions})
	ping := rpc.NewRouter("system").
		Procedure("ping", rpc.Query(builder.Public, func(context.Context, rpc.Empty) (map[string]string, error) {
			return map[string]string{"pong": "ok"}, nil
		}))

	ts := &testServer{maintenance: &atomic.Bool{}, dbDown: &atomic.Bool{}}
	health := healthcheck.New("test", logger)
	health.SetCacheTTL(0)
	health.Register("database", healthcheck.PingFunc(func(context.Context) error {
		if ts.dbDown.Load() {
			return errors.New("connection refused")
		}
		return nil
	}))

	pages, err := web.NewPages(fakeUsers{}, fakeSubscriptions{}, web.Options{}, logger)
	require.NoError(t, err)

	srv := NewServer(Deps{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		Health:      health,
		Guard:       middleware.NewGuard(sessions, nil, nil, metrics, logger),
		RPC:         builder,
		Routers:     []*rpc.Router{ping},
		Auth:        handlers.NewAuthHandlers(fakeUsers{}, sessions, cfg.Auth, logger),
		Webhook:     handlers.NewWebhookHandler(fakeSubscriptions{}, metrics, logger),
		Pages:       pages,
		Maintenance: ts.maintenance.Load,
	})
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestServer_PrefersBrotli(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(brotli.NewReader(rec.Body)).Decode(&body))
	assert.Equal(t, "alive", body["status"])
}

func TestServer_Probes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alive"`)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.dbDown.Store(true)
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestServer_RPCAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/rpc/system.ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":{"data":{"pong":"ok"}}}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nourish_rpc_calls_total")
}

func TestServer_MetricsDisabled(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.Monitoring.EnableMetrics = false })

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_UnknownRouteIsJSON404(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/rpc/system.missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestServer_GuardRedirectsProtectedPages(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirectTo=%2Fdashboard", rec.Header().Get("Location"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_WebPages(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/pricing", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Free")
}

func TestServer_Maintenance(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.maintenance.Store(true)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/rpc/system.ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("Retry-After"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.maintenance.Store(false)
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/rpc/system.ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.EnableCORS = true
		cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/rpc/system.ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := ts.do(req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
