package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mashnote",
	Short: "BeerXML recipe importer and library",
	Long:  "Imports BeerXML recipes into a local library: normalizes units, validates ingredients, reconciles them against the ingredient catalog, and computes OG/FG/ABV/IBU/SRM.",
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
