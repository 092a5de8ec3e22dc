package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nourishlab/nourish/internal/infrastructure/container"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	gormrepo "github.com/nourishlab/nourish/internal/infrastructure/persistence/gorm"
	"github.com/nourishlab/nourish/internal/infrastructure/realtime"
)

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-subscriptions",
		Short: "Reconcile every subscription with the payment provider",
		Long: `Fetch the provider's view of every linked subscription and apply any
status changes. This is the same reconciliation the scheduled job runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if !cfg.Billing.Enabled() {
				return errors.New("billing is not configured")
			}

			db, err := container.OpenDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			metrics := monitoring.NewMetrics()
			provider := container.NewBillingProvider(cfg, container.NewBreakers(log), metrics, log)
			users := gormrepo.NewUserRepository(db.DB)
			events := realtime.NewEventBus(nil, metrics, log)
			subs := container.NewSubscriptionService(cfg, gormrepo.NewSubscriptionRepository(db.DB), users, provider, events, log)

			report, err := subs.SyncAll(cmd.Context())
			if report != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "checked: %d\nupdated: %d\nfailed:  %d\n", report.Checked, report.Updated, report.Failed)
			}
			return err
		},
	}
}
