package container

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/nourishlab/nourish/internal/infrastructure/http/server"
)

func testConfigPath(t *testing.T) ConfigPath {
	t.Helper()
	dir := t.TempDir()
	body := "app:\n  environment: test\n  log_level: error\n" +
		"database:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "nourish.db") + "\n" +
		"jobs:\n  enable: false\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return ConfigPath(path)
}

func TestModule_Validates(t *testing.T) {
	err := fx.ValidateApp(Module, fx.Supply(testConfigPath(t)), fx.NopLogger)
	require.NoError(t, err)
}

func TestModule_ServesRequests(t *testing.T) {
	var (
		srv *server.Server
		rt  *Runtime
	)
	app := fxtest.New(t,
		Module,
		fx.Supply(testConfigPath(t)),
		fx.NopLogger,
		fx.Populate(&srv, &rt),
	)
	require.NoError(t, app.Err())
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rpc/subscriptions.plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var plans struct {
		Result struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	require.NotEmpty(t, plans.Result.Data)
	assert.Equal(t, "free", plans.Result.Data[0].ID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, rec.Code)

	rt.maintenance.Store(true)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rpc/subscriptions.plans", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
