package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nourishlab/nourish/pkg/healthcheck"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := "database:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "nourish.db") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func readinessServer(t *testing.T, status int, checks ...healthcheck.Check) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		overall := healthcheck.StatusHealthy
		if status != http.StatusOK {
			overall = healthcheck.StatusUnhealthy
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(healthcheck.Response{Status: overall, Version: "1.2.3", Checks: checks})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth_Ready(t *testing.T) {
	srv := readinessServer(t, http.StatusOK, healthcheck.Check{Name: "database", Status: healthcheck.StatusHealthy})

	out, err := execute(t, "health", "--url", srv.URL+"/readyz")

	require.NoError(t, err)
	assert.Contains(t, out, "status: healthy (version 1.2.3)")
	assert.Contains(t, out, "database")
}

func TestHealth_NotReady(t *testing.T) {
	srv := readinessServer(t, http.StatusServiceUnavailable,
		healthcheck.Check{Name: "database", Status: healthcheck.StatusUnhealthy, Message: "connection refused"})

	out, err := execute(t, "health", "--url", srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "service not ready")
	assert.Contains(t, out, "connection refused")
}

func TestHealth_JSONFormat(t *testing.T) {
	srv := readinessServer(t, http.StatusOK)

	out, err := execute(t, "health", "--url", srv.URL, "--format", "json")

	require.NoError(t, err)
	assert.Contains(t, out, `"version":"1.2.3"`)
}

func TestHealth_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := execute(t, "health", "--url", url, "--retry", "1", "--retry-delay", "10ms", "--timeout", time.Second.String())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := execute(t, "--config", sqliteConfig(t), "migrate", "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres driver")
}

func TestSeed_IsRepeatable(t *testing.T) {
	path := sqliteConfig(t)
	t.Setenv("NOURISH_DATABASE_SEED_ADMIN_PASSWORD", "correct-horse-battery")

	out, err := execute(t, "--config", path, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "admin created: true")

	out, err = execute(t, "--config", path, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "admin created: false")
	assert.Contains(t, out, "recipes created: 0")
}

func TestSeed_RequiresPassword(t *testing.T) {
	_, err := execute(t, "--config", sqliteConfig(t), "seed")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed_admin_password")
}

func TestSyncSubscriptions_RequiresBilling(t *testing.T) {
	_, err := execute(t, "--config", sqliteConfig(t), "sync-subscriptions")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing is not configured")
}
