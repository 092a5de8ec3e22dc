package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/inbound"
)

// Job names
const (
	SubscriptionSync = "subscription-sync"
	LimiterCleanup   = "limiter-cleanup"
	CachePurge       = "cache-purge"
)

const subscriptionSyncTimeout = 30 * time.Minute

// Cleaner drops idle rate limiter state
type Cleaner interface {
	Cleanup(idle time.Duration) int
}

// Purger drops expired cache entries
type Purger interface {
	Purge() int
}

// Deps are the components the built-in jobs operate on. Nil members skip
// their job.
type Deps struct {
	Subscriptions inbound.SubscriptionService
	Limiter       Cleaner
	Cache         Purger
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
}

// Register adds the built-in jobs to s
func Register(s *Scheduler, cfg *config.Config, deps Deps) error {
	logger := deps.Logger.Named("jobs")

	if deps.Subscriptions != nil && cfg.Billing.Enabled() {
		err := s.Add(Job{
			Name:     SubscriptionSync,
			Schedule: cfg.Jobs.SubscriptionSyncSchedule,
			Timeout:  subscriptionSyncTimeout,
			Run: func(ctx context.Context) error {
				report, err := deps.Subscriptions.SyncAll(ctx)
				if report != nil {
					deps.Metrics.RecordSubscriptionSync(report.Checked, report.Updated, report.Failed)
				}
				return err
			},
		})
		if err != nil {
			return err
		}
	}

	if deps.Limiter != nil {
		idle := cfg.RateLimit.IdleTTL
		err := s.Add(Job{
			Name:     LimiterCleanup,
			Schedule: cfg.Jobs.LimiterCleanupSchedule,
			Run: func(context.Context) error {
				if removed := deps.Limiter.Cleanup(idle); removed > 0 {
					logger.Debug("Idle rate limit buckets removed", zap.Int("removed", removed))
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
	}

	if deps.Cache != nil {
		err := s.Add(Job{
			Name:     CachePurge,
			Schedule: cfg.Jobs.LimiterCleanupSchedule,
			Run: func(context.Context) error {
				if removed := deps.Cache.Purge(); removed > 0 {
					logger.Debug("Expired cache entries purged", zap.Int("removed", removed))
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
	}

	return nil
}
