package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sbscully/geocode-sqlite/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geocode-sqlite",
	Short: "Geocode rows from a database table",
	Long: `Reads rows from a SQLite or Postgres table, renders a location query per
row from a {column} template, geocodes it against the chosen provider, and
writes latitude/longitude back to the table. Rows with null coordinates are
pending; re-running resumes where the last run stopped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
