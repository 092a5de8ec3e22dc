package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nourishlab/nourish/internal/infrastructure/persistence/migrations"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
		Long: `Apply or roll back the embedded schema migrations.

SQLite databases are migrated from the models at startup and need no migrations.`,
	}

	withMigrator := func(run func(cmd *cobra.Command, m *migrations.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrations require the postgres driver, configured driver is %q", cfg.Database.Driver)
			}
			m, err := migrations.New(cfg.GetMigrateURL(), log)
			if err != nil {
				return err
			}
			defer m.Close()
			return run(cmd, m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE: withMigrator(func(cmd *cobra.Command, m *migrations.Migrator, _ []string) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printStatus(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withMigrator(func(cmd *cobra.Command, m *migrations.Migrator, _ []string) error {
				if err := m.Down(); err != nil {
					return err
				}
				return printStatus(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied and latest schema versions",
			RunE: withMigrator(func(cmd *cobra.Command, m *migrations.Migrator, _ []string) error {
				return printStatus(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark a version as applied after a failed migration",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m *migrations.Migrator, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				if err := m.Force(version); err != nil {
					return err
				}
				return printStatus(cmd, m)
			}),
		},
	)
	return cmd
}

func printStatus(cmd *cobra.Command, m *migrations.Migrator) error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "version: %d\nlatest:  %d\n", status.Version, status.Latest)
	if status.Dirty {
		fmt.Fprintln(out, "state:   dirty (fix the schema, then run migrate force)")
	}
	return nil
}
