package jobs

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/inbound"
)

type fakeSubscriptions struct {
	inbound.SubscriptionService
	report *inbound.SyncReport
	err    error
	calls  atomic.Int32
}

func (f *fakeSubscriptions) SyncAll(context.Context) (*inbound.SyncReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

type fakeLimiter struct{ idle time.Duration }

func (f *fakeLimiter) Cleanup(idle time.Duration) int {
	f.idle = idle
	return 2
}

type fakeCache struct{ purged int }

func (f *fakeCache) Purge() int {
	f.purged++
	return 1
}

func testConfig() *config.Config {
	return &config.Config{
		Billing:   config.BillingConfig{Provider: "stripe", SecretKey: "sk_test", WebhookSecret: "whsec"},
		RateLimit: config.RateLimitConfig{IdleTTL: 10 * time.Minute},
		Jobs: config.JobsConfig{
			SubscriptionSyncSchedule: "@every 6h",
			LimiterCleanupSchedule:   "@every 5m",
		},
	}
}

func scrape(t *testing.T, m *monitoring.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestRegister_RunsBuiltInJobs(t *testing.T) {
	metrics := monitoring.NewMetrics()
	logger := zaptest.NewLogger(t)
	s := NewScheduler(metrics, logger)
	subs := &fakeSubscriptions{report: &inbound.SyncReport{Checked: 4, Updated: 1, Failed: 1}}
	limiter := &fakeLimiter{}
	cache := &fakeCache{}

	require.NoError(t, Register(s, testConfig(), Deps{
		Subscriptions: subs,
		Limiter:       limiter,
		Cache:         cache,
		Metrics:       metrics,
		Logger:        logger,
	}))
	assert.Equal(t, []string{CachePurge, LimiterCleanup, SubscriptionSync}, s.Jobs())

	require.NoError(t, s.RunNow(context.Background(), SubscriptionSync))
	require.NoError(t, s.RunNow(context.Background(), LimiterCleanup))
	require.NoError(t, s.RunNow(context.Background(), CachePurge))

	assert.Equal(t, int32(1), subs.calls.Load())
	assert.Equal(t, 10*time.Minute, limiter.idle)
	assert.Equal(t, 1, cache.purged)

	out := scrape(t, metrics)
	assert.Contains(t, out, `nourish_subscription_sync_total{result="checked"} 4`)
	assert.Contains(t, out, `nourish_subscription_sync_total{result="failed"} 1`)
	assert.Contains(t, out, `nourish_job_runs_total{job="subscription-sync",result="success"} 1`)
}

func TestRegister_SkipsSyncWithoutBilling(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewScheduler(nil, logger)
	cfg := testConfig()
	cfg.Billing = config.BillingConfig{}

	require.NoError(t, Register(s, cfg, Deps{Subscriptions: &fakeSubscriptions{}, Limiter: &fakeLimiter{}, Logger: logger}))
	assert.Equal(t, []string{LimiterCleanup}, s.Jobs())
	assert.Error(t, s.RunNow(context.Background(), SubscriptionSync))
}

func TestScheduler_RejectsBadJobs(t *testing.T) {
	s := NewScheduler(nil, zaptest.NewLogger(t))
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Add(Job{Name: "broken", Schedule: "every now and then", Run: noop}))
	assert.Error(t, s.Add(Job{Schedule: "@every 1m", Run: noop}))
	require.NoError(t, s.Add(Job{Name: "ok", Schedule: "@every 1m", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "ok", Schedule: "@every 1m", Run: noop}))
}

func TestScheduler_RecordsFailures(t *testing.T) {
	metrics := monitoring.NewMetrics()
	s := NewScheduler(metrics, zaptest.NewLogger(t))
	boom := errors.New("boom")
	require.NoError(t, s.Add(Job{Name: "flaky", Schedule: "@every 1h", Run: func(context.Context) error { return boom }}))

	assert.ErrorIs(t, s.RunNow(context.Background(), "flaky"), boom)
	assert.Contains(t, scrape(t, metrics), `nourish_job_runs_total{job="flaky",result="error"} 1`)
}

func TestScheduler_TimeoutBoundsRun(t *testing.T) {
	s := NewScheduler(nil, zaptest.NewLogger(t))
	require.NoError(t, s.Add(Job{
		Name:     "slow",
		Schedule: "@every 1h",
		Timeout:  20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))

	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), context.DeadlineExceeded)
}

func TestScheduler_RunsOnScheduleAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewScheduler(nil, zaptest.NewLogger(t))
	var runs atomic.Int32
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
