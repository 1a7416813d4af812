package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kyiv-estate/rentscout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rentscout",
	Short: "Kyiv commercial rent search over channel postings",
	Long:  "Scrapes office and warehouse rental channels, extracts structured offers, and serves filtered, ranked result cards with photo collages.",
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
