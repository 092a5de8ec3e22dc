package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nourishlab/nourish/internal/infrastructure/container"
	gormrepo "github.com/nourishlab/nourish/internal/infrastructure/persistence/gorm"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/seed"
)

func newSeedCmd(c *cli) *cobra.Command {
	var (
		catalogPath string
		adminEmail  string
		adminName   string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and the recipe catalog",
		Long: `Seed an empty database. Existing data is kept, so the command is safe to repeat.

The admin password comes from database.seed_admin_password
(NOURISH_DATABASE_SEED_ADMIN_PASSWORD).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if cfg.Database.SeedAdminPassword == "" {
				return errors.New("database.seed_admin_password is required")
			}
			if adminEmail == "" {
				adminEmail = cfg.Database.SeedAdminEmail
			}

			var catalog *seed.Catalog
			if catalogPath != "" {
				data, err := os.ReadFile(catalogPath)
				if err != nil {
					return fmt.Errorf("failed to read catalog: %w", err)
				}
				if catalog, err = seed.ParseCatalog(data); err != nil {
					return err
				}
			}

			db, err := container.OpenDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			seeder, err := seed.NewSeeder(gormrepo.NewUserRepository(db.DB), gormrepo.NewRecipeRepository(db.DB), catalog, log)
			if err != nil {
				return err
			}
			result, err := seeder.Run(cmd.Context(), seed.Options{
				AdminEmail:    adminEmail,
				AdminName:     adminName,
				AdminPassword: cfg.Database.SeedAdminPassword,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "admin created: %t\nrecipes created: %d\n", result.AdminCreated, result.RecipesCreated)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML recipe catalog (default: built-in catalog)")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "Admin email (default: database.seed_admin_email)")
	cmd.Flags().StringVar(&adminName, "admin-name", "Administrator", "Admin display name")
	return cmd
}
