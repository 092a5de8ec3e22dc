// Command nourishctl runs operational tasks against a Nourish deployment:
// schema migrations, demo data, subscription reconciliation and health probes.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/pkg/logger"
)

// cli holds the flags shared by every command
type cli struct {
	configPath string
	verbose    bool
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "nourishctl",
		Short:        "Operate a Nourish deployment",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("NOURISH_CONFIG"), "Config file path")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newMigrateCmd(c),
		newSeedCmd(c),
		newSyncCmd(c),
		newHealthCmd(c),
	)
	return root
}

func (c *cli) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:       level,
		Format:      "console",
		Development: cfg.App.Debug,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
